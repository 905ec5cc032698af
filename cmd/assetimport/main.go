// assetimport copies asset files between a local folder and the postgres
// asset table read by assets.source = "postgres".
//
// Usage:
//
//	go run ./cmd/assetimport [-config path] [-dir assets] [-charset big5] <command> [args]
//
// Commands: push [subdir], ls [subdir], rm <path>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/config"
	"github.com/l1jgo/entkit/internal/logging"
	"github.com/l1jgo/entkit/internal/persist"
	"go.uber.org/zap"
)

// textExts are transcoded to UTF-8 on push when -charset is set.
var textExts = map[string]bool{
	".yml": true, ".yaml": true, ".json": true, ".toml": true, ".txt": true, ".lua": true,
}

func main() {
	configPath := flag.String("config", "", "path to the TOML config")
	dir := flag.String("dir", "", "local asset folder (default assets.root)")
	charset := flag.String("charset", "", "transcode text files from this charset on push")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: assetimport [flags] <push [subdir] | ls [subdir] | rm <path>>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *dir, *charset, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "assetimport: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dir, charset string, args []string) error {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if _, err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	repo := persist.NewAssetRepo(db)

	if dir == "" {
		dir = cfg.Assets.Root
	}
	sub := "."
	if len(args) > 1 {
		sub = args[1]
	}

	switch args[0] {
	case "push":
		n, err := push(ctx, asset.FileSource{Root: dir}, repo, sub, charset)
		if err != nil {
			return err
		}
		fmt.Printf("Pushed %d assets from %s\n", n, dir)
	case "ls":
		paths, err := repo.List(ctx, sub)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("rm needs a path")
		}
		ok, err := repo.Delete(ctx, args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", args[1], asset.ErrNotFound)
		}
		log.Info("asset removed", zap.String("path", args[1]))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

// assetWriter is the part of persist.AssetRepo push needs.
type assetWriter interface {
	Put(ctx context.Context, path string, content []byte) error
}

// push copies every file below sub from src into dst and returns the count.
func push(ctx context.Context, src asset.FileSource, dst assetWriter, sub, charset string) (int, error) {
	files, err := src.List(ctx, sub)
	if err != nil {
		return 0, err
	}
	for _, f := range files {
		data, err := src.Read(ctx, f)
		if err != nil {
			return 0, err
		}
		if charset != "" && textExts[path.Ext(f)] {
			if data, err = asset.DecodeText(data, charset); err != nil {
				return 0, fmt.Errorf("%s: %w", f, err)
			}
		}
		if err := dst.Put(ctx, f, data); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}
