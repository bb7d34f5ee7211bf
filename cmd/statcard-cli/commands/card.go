package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"statcard-backend/lib/cardimage"
	"statcard-backend/lib/fetch"
	"statcard-backend/lib/scrapers/faceitanalyser"
	"statcard-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	cardOut    *string
	cardAssets *string
)

func init() {
	cardOut = cardCmd.Flags().String("out", "card.png", "The file to write the rendered card to.")
	cardAssets = cardCmd.Flags().String("assets", "assets", "Directory holding template.png and the card fonts.")
	rootCmd.AddCommand(cardCmd)
}

var cardCmd = &cobra.Command{
	Use:   "card <nickname> [--out <path/to/card.png>] [--assets <dir>]",
	Short: "Fetches a player's stats and renders their card to a png file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		assets, err := cardimage.LoadAssets(*cardAssets)
		if err != nil {
			serviceutil.Fatal("failed to load card assets", err)
		}

		record := fetchRecord(cmd.Context(), args[0])

		composer := cardimage.NewComposer(assets, cardimage.NewRestyImageSource())
		png, err := composer.Compose(cmd.Context(), record)
		if err != nil {
			serviceutil.Fatal("failed to render card", err)
		}

		err = os.WriteFile(*cardOut, png, 0644)
		if err != nil {
			serviceutil.Fatal("failed to write output", err)
		}
		slog.Info("card written", "nickname", record.Nickname, "out", *cardOut)
	},
}

func fetchRecord(ctx context.Context, nickname string) faceitanalyser.StatRecord {
	fetcher, err := fetch.NewPlaywright(fetch.PlaywrightOptions{
		BaseUrl: *baseUrl,
		Timeout: time.Second * time.Duration(*timeoutSeconds),
	})
	if err != nil {
		serviceutil.Fatal("failed to start browser", err)
	}
	defer fetcher.Close()

	t1 := time.Now()
	page, err := fetcher.Fetch(ctx, nickname)
	if err != nil {
		serviceutil.Fatal("failed to fetch profile", err)
	}
	slog.Info("fetched profile", "url", page.URL, "seconds", time.Since(t1).Seconds())

	record, err := faceitanalyser.Extract(ctx, page)
	if err != nil {
		serviceutil.Fatal("failed to extract stats", err)
	}
	return record
}
