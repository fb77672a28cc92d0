// Command checkout prices a basket of SKUs against a catalog file.
//
// SKUs are taken from the arguments, or one per line from stdin when no
// arguments are given:
//
//	checkout -catalog catalog.json A B A A
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/till-checkout/internal/catalog/file"
	"github.com/xenking/till-checkout/internal/checkout"
	"github.com/xenking/till-checkout/internal/domain/product"
)

func main() {
	var (
		catalogPath string
		verbose     bool
	)
	flag.StringVar(&catalogPath, "catalog", "catalog.example.json", "path to catalog JSON file (.json or .json.gz)")
	flag.BoolVar(&verbose, "v", false, "log every scan")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(2)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	var items []string
	if flag.NArg() > 0 {
		items = flag.Args()
	} else if items, err = readItems(os.Stdin); err != nil {
		lg.Fatal("Read items", zap.Error(err))
	}

	total, err := run(ctx, catalogPath, items)
	if err != nil {
		lg.Fatal("Checkout failed", zap.Error(err))
	}
	fmt.Println(product.Major(total).StringFixed(product.MinorUnitExponent))
}

func run(ctx context.Context, catalogPath string, items []string) (int64, error) {
	c, err := file.Load(catalogPath)
	if err != nil {
		return 0, errors.Wrap(err, "load catalog")
	}
	products, rules, err := c.Memory()
	if err != nil {
		return 0, errors.Wrap(err, "build catalog")
	}

	co, err := checkout.New(products, rules)
	if err != nil {
		return 0, errors.Wrap(err, "new checkout")
	}
	for _, item := range items {
		if err := co.Scan(ctx, item); err != nil {
			return 0, errors.Wrapf(err, "scan %q", item)
		}
	}
	return co.TotalPrice(ctx)
}

func readItems(r io.Reader) ([]string, error) {
	var items []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		if item := strings.TrimSpace(s.Text()); item != "" {
			items = append(items, item)
		}
	}
	return items, s.Err()
}
