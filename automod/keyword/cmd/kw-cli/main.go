package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/chatguard/chatguard/automod/keyword"
	"github.com/chatguard/chatguard/util"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "kw-cli",
		Usage: "informal debugging CLI tool for profanity matching",
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "censor",
			Usage:  "reads lines of text from stdin, censors using a default language list, outputs changed lines",
			Action: runCensor,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "lang",
					Usage: "language code of the default word list",
					Value: "en",
				},
				&cli.StringFlag{
					Name:  "wordlist-base-url",
					Value: keyword.DefaultWordListURL,
				},
			},
		},
		&cli.Command{
			Name:   "tokens",
			Usage:  "reads lines of text from stdin, outputs normalized tokens",
			Action: runTokens,
		},
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))
	if err := app.Run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func runCensor(cctx *cli.Context) error {
	loader := keyword.WordListLoader{
		BaseURL: cctx.String("wordlist-base-url"),
		Client:  util.RobustHTTPClient(),
		Logger:  slog.Default(),
	}
	words, err := loader.Load(cctx.Context, cctx.String("lang"))
	if err != nil {
		return err
	}
	m := keyword.NewMatcher(words)
	slog.Info("loaded word list", "lang", cctx.String("lang"), "entries", m.Size())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if out, changed := m.Censor(line); changed {
			fmt.Printf("%s\t%s\n", line, out)
		}
	}
	return scanner.Err()
}

func runTokens(cctx *cli.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fmt.Println(keyword.TokenizeText(scanner.Text()))
	}
	return scanner.Err()
}
