// Command seed-db prepares a storefront database: it runs migrations, loads
// the product catalog from a JSON file (optionally gzip-compressed) or
// generates a randomized catalog, and optionally seeds a demo account.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		generate     int
		workers      int
		demoEmail    string
		demoPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (.json or .json.gz)")
	flag.IntVar(&generate, "generate", 1000, "number of random products to generate when no file is given")
	flag.IntVar(&workers, "workers", 8, "concurrent insert workers")
	flag.StringVar(&demoEmail, "demo-email", "", "email of a demo account to seed (or STORE_SEED_EMAIL env)")
	flag.StringVar(&demoPassword, "demo-password", "", "password of the demo account (or STORE_SEED_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if demoEmail == "" {
		demoEmail = os.Getenv("STORE_SEED_EMAIL")
	}
	if demoPassword == "" {
		demoPassword = os.Getenv("STORE_SEED_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, generate, workers, demoEmail, demoPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, generate, workers int, demoEmail, demoPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	var products []product.Product
	if productsFile != "" {
		products, err = loadProducts(productsFile)
		if err != nil {
			return errors.Wrap(err, "load products")
		}
	} else {
		products = generateProducts(generate)
	}

	if err := seedProducts(ctx, pool, products, workers); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if demoEmail != "" && demoPassword != "" {
		if err := seedDemoUser(ctx, pool, demoEmail, demoPassword); err != nil {
			return errors.Wrap(err, "seed demo user")
		}
	}

	return nil
}

// loadProducts streams a products JSON array from a plain or gzip-compressed
// file.
func loadProducts(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	slog.Info("reading products file", slog.String("path", path))
	return decodeProducts(r)
}

// decodeProducts decodes a JSON array of catalog products.
func decodeProducts(r io.Reader) ([]product.Product, error) {
	d := jx.Decode(r, 64*1024)

	var products []product.Product
	if err := d.Arr(func(d *jx.Decoder) error {
		var (
			p   product.Product
			err error
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "price":
				var num jx.Num
				if num, err = d.Num(); err == nil {
					p.Price, err = decimal.NewFromString(num.String())
				}
			case "image":
				p.Image, err = d.Str()
			case "description":
				p.Description, err = d.Str()
			case "category":
				p.Category, err = d.Str()
			case "stock":
				p.Stock, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products array")
	}

	return products, nil
}

var categories = map[string][]string{
	"Electronics":   {"laptop", "phone", "headphones", "monitor", "keyboard", "mouse", "tablet", "smartwatch", "camera", "speaker"},
	"Kitchen":       {"pan", "kettle", "coffee maker", "blender", "toaster", "knife", "plate", "bowl", "mug", "grill"},
	"Home":          {"sofa", "lamp", "pillow", "bed", "curtain", "rug", "chair", "table", "shelf", "clock"},
	"Fashion":       {"shirt", "pants", "sneakers", "dress", "jacket", "hoodie", "scarf", "socks", "belt", "hat"},
	"Personal Care": {"shampoo", "soap", "brush", "razor", "lotion", "perfume", "spa kit", "mirror", "comb", "towel"},
	"Fitness":       {"dumbbells", "mat", "treadmill", "cycle", "bottle", "towel", "bands", "gloves", "tracker", "gym bag"},
	"Stationery":    {"pen", "notebook", "desk", "paper", "stapler", "marker", "folder", "planner", "calendar", "lamp"},
	"Accessories":   {"watch", "wallet", "glasses", "necklace", "ring", "bracelet", "earrings", "umbrella", "tie", "keychain"},
}

var adjectives = []string{
	"Premium", "Ultra", "Smart", "Eco", "Pro", "Essential", "Modern", "Classic", "Deluxe",
	"Ergonomic", "Luxury", "Minimalist", "Portable", "Wireless", "Sleek", "Durable",
	"Advanced", "Compact", "Elegant", "Vintage",
}

// generateProducts builds a randomized catalog of n products across all
// categories for demo and load-testing setups.
func generateProducts(n int) []product.Product {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}

	products := make([]product.Product, n)
	for i := range products {
		category := names[rand.Intn(len(names))]
		keyword := categories[category][rand.Intn(len(categories[category]))]
		adj := adjectives[rand.Intn(len(adjectives))]
		name := adj + " " + titleCase(keyword)

		price := decimal.NewFromInt(int64(rand.Intn(20000) + 500)).Div(decimal.NewFromInt(100))
		products[i] = product.Product{
			ID:          uuid.New().String(),
			Name:        name,
			Price:       price,
			Image:       fmt.Sprintf("products/%s-%d.jpg", strings.ReplaceAll(keyword, " ", "-"), i+1),
			Description: fmt.Sprintf("This is a high-quality %s from our %s collection.", name, category),
			Category:    category,
			Stock:       rand.Intn(100) + 10,
		}
	}
	return products
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// seedProducts upserts the catalog with a bounded pool of insert workers.
func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []product.Product, workers int) error {
	slog.Info("upserting products", slog.Int("count", len(products)), slog.Int("workers", workers))

	repo := repository.NewProductRepository(pool)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range products {
		g.Go(func() error {
			if err := repo.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			return nil
		})
	}
	return g.Wait()
}

// seedDemoUser creates (or replaces the password of) a demo account.
func seedDemoUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	slog.Info("seeding demo user", slog.String("email", email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	repo := repository.NewUserRepository(pool)
	err = repo.Create(ctx, &user.User{
		ID:           uuid.New().String(),
		Name:         "Demo User",
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
	})
	if err != nil && !errors.Is(err, user.ErrEmailTaken) {
		return err
	}
	return nil
}
