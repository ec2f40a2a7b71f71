// Copyright 2021 Tamas Gulacsi. All rights reserved.

// Command csv2xlsx converts CSV files into the worksheets of one XLSX file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/UNO-SOFT/largexlsx"
	"github.com/UNO-SOFT/largexlsx/xlsx"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3/ffcli"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

type config struct {
	encName string
	numbers bool
	freeze  bool
}

func Main() error {
	var conf config
	fs := flag.NewFlagSet("csv2xlsx", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.StringVar(&conf.encName, "charset", largexlsx.EncName, "csv charset name")
	fs.BoolVar(&conf.numbers, "numbers", false, "write numeric fields as numbers")
	fs.BoolVar(&conf.freeze, "freeze", false, "freeze the header row")
	flagCompression := fs.Int("compression", xlsx.DefaultCompressionLevel, "deflate level (-2..9)")
	flagInline := fs.Bool("inline", false, "store strings in the cells instead of the shared string table")

	app := ffcli.Command{Name: "csv2xlsx", FlagSet: fs,
		ShortUsage: "csv2xlsx [flags] out.xlsx [sheet:]in.csv...",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			opts := []xlsx.Option{
				xlsx.WithLogger(logger),
				xlsx.WithCompressionLevel(*flagCompression),
			}
			if *flagInline {
				opts = append(opts, xlsx.WithStringPolicy(xlsx.InlineStrings))
			}
			var w *xlsx.Writer
			var err error
			if fn := args[0]; fn == "" || fn == "-" {
				w, err = xlsx.NewWriter(os.Stdout, opts...)
			} else {
				w, err = xlsx.Create(fn, opts...)
			}
			if err != nil {
				return err
			}

			inputs := args[1:]
			if len(inputs) == 0 {
				inputs = []string{"-"}
			}
			for i, fn := range inputs {
				sheetName := fmt.Sprintf("Sheet%d", i+1)
				if i := strings.IndexByte(fn, ':'); i >= 0 {
					sheetName, fn = fn[:i], fn[i+1:]
				} else if fn != "" && fn != "-" {
					sheetName = strings.TrimSuffix(filepath.Base(fn), ".csv")
				}
				if err := copyFile(ctx, w, sheetName, fn, conf); err != nil {
					w.Abort()
					return fmt.Errorf("%q: %w", fn, err)
				}
			}
			return w.Close()
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.ParseAndRun(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func copyFile(ctx context.Context, w *xlsx.Writer, sheetName, fn string, conf config) error {
	cr, err := largexlsx.OpenCsv(fn, conf.encName)
	if err != nil {
		return err
	}
	defer cr.Close()

	var opts []xlsx.WorksheetOption
	if conf.freeze {
		opts = append(opts, xlsx.SplitAt(1, 0))
	}
	if err := w.BeginWorksheet(sheetName, opts...); err != nil {
		return err
	}
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	bold := largexlsx.DefaultStyle.WithFont(largexlsx.DefaultFont.WithBold(true))
	if err := w.BeginRow(); err != nil {
		return err
	}
	for _, s := range header {
		if err := w.Write(s, xlsx.Styled(bold)); err != nil {
			return err
		}
	}

	var n int
	for {
		row, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if n++; n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Debug("copy", "sheet", sheetName, "rows", n)
		}
		if err := w.BeginRow(); err != nil {
			return err
		}
		for _, s := range row {
			if err := w.Write(cellValue(s, conf.numbers)); err != nil {
				return err
			}
		}
	}
	logger.Info("copied", "sheet", sheetName, "rows", n, slog.String("file", fn))
	return nil
}

// cellValue returns nil for empty fields and a Number for numeric ones if numbers is set.
func cellValue(s string, numbers bool) any {
	if s == "" {
		return nil
	}
	if numbers {
		if f, err := strconv.ParseFloat(s, 64); err == nil &&
			!math.IsInf(f, 0) && !math.IsNaN(f) && !strings.ContainsAny(s, "xXpP_") {
			return largexlsx.Number(s)
		}
	}
	return s
}
