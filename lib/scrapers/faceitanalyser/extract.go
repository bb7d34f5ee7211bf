// Package faceitanalyser extracts structured player statistics out of
// a rendered faceitanalyser.com profile page.
package faceitanalyser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"statcard-backend/lib/fetch"
	"statcard-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// an anchor for a mandatory field cannot be located at all, the
	// site's structure diverged from what this extractor expects.
	// this is upstream drift and needs operator attention, it is not
	// a property of the player being looked up.
	ErrLayoutChanged = errors.New("faceitanalyser: page layout changed")
	// mandatory anchors exist but their values are empty or
	// unparsable, the record cannot be rendered meaningfully
	ErrMissingCoreFields = errors.New("faceitanalyser: missing core fields")
)

const (
	selProfileName = "span.stats_profile_name_span"
	selProfileElo  = "span.stats_profile_elo_span"
	selAvatar      = "img.stats_profile_avatar"
	selLevelImage  = "img.stats_profile_level_image"
	selLifetime    = "div#view1_stats"
	selRecent      = "div#view2_stats"
	selBlock       = "div.stats_totals_block_wrapper"
	selBlockTitle  = "span.stats_totals_block_title_text"
	selBlockMain   = "span.stats_totals_block_main_value_span"
	selItemTitle   = "span.stats_totals_block_item_title"
	selItemValue   = "span.stats_totals_block_item_value"
	selFormResult  = "div#recent_results span.recent_match_result"
)

func Extract(ctx context.Context, page fetch.Page) (StatRecord, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.String("handle", page.Handle))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return StatRecord{}, fmt.Errorf("parse profile html: %w", err)
	}

	record := StatRecord{ExtractedAt: page.FetchedAt}

	nameSel := doc.Find(selProfileName)
	if nameSel.Length() == 0 {
		span.SetStatus(codes.Error, "profile name anchor missing")
		return StatRecord{}, fmt.Errorf("%w: %s not found", ErrLayoutChanged, selProfileName)
	}
	record.Nickname = htmlutil.CleanText(nameSel.First().Text())
	if record.Nickname == "" {
		span.SetStatus(codes.Error, "profile name empty")
		return StatRecord{}, fmt.Errorf("%w: empty nickname", ErrMissingCoreFields)
	}

	record.Elo = parseField(doc.Find(selProfileElo).First().Text())

	record.AvatarUrl = imageSrc(doc.Find(selAvatar).First(), page.URL)
	levelImages := doc.Find(selLevelImage)
	// the first level-styled image is the country flag, the second the
	// skill level badge, matching the page's render order
	record.FlagUrl = imageSrc(levelImages.Eq(0), page.URL)
	record.LevelUrl = imageSrc(levelImages.Eq(1), page.URL)

	lifetimeSel := doc.Find(selLifetime)
	if lifetimeSel.Length() == 0 {
		span.SetStatus(codes.Error, "lifetime stats anchor missing")
		return StatRecord{}, fmt.Errorf("%w: %s not found", ErrLayoutChanged, selLifetime)
	}
	recentSel := doc.Find(selRecent)
	if recentSel.Length() == 0 {
		span.SetStatus(codes.Error, "recent stats anchor missing")
		return StatRecord{}, fmt.Errorf("%w: %s not found", ErrLayoutChanged, selRecent)
	}

	record.Lifetime = extractBlocks(lifetimeSel)
	record.Recent = extractBlocks(recentSel)

	matches, ok := findBlock(record.Lifetime, blockMatches)
	if !ok {
		span.SetStatus(codes.Error, "matches block missing")
		return StatRecord{}, fmt.Errorf("%w: %q block not found", ErrLayoutChanged, blockMatches)
	}
	rating, ok := findBlock(record.Lifetime, blockRating)
	if !ok {
		span.SetStatus(codes.Error, "rating block missing")
		return StatRecord{}, fmt.Errorf("%w: %q block not found", ErrLayoutChanged, blockRating)
	}
	record.Matches = matches.MainValue
	record.Rating = rating.MainValue
	if !record.Matches.Available || !record.Rating.Available {
		span.SetStatus(codes.Error, "mandatory fields unparsable")
		return StatRecord{}, fmt.Errorf(
			"%w: matches=%q rating=%q",
			ErrMissingCoreFields, matches.MainValue.Raw, rating.MainValue.Raw,
		)
	}

	if winrate, ok := findBlock(record.Lifetime, blockWinrate); ok {
		record.WinRate = winrate.MainValue
	}
	if kdr, ok := findBlock(record.Lifetime, blockKDR); ok {
		record.AvgKDR = kdr.MainValue
	}
	if kpr, ok := findBlock(record.Lifetime, blockKPR); ok {
		record.AvgKPR = kpr.MainValue
	}

	doc.Find(selFormResult).Each(func(_ int, s *goquery.Selection) {
		outcome := htmlutil.CleanText(s.Text())
		if outcome == "W" || outcome == "L" {
			record.RecentForm.Sequence = append(record.RecentForm.Sequence, outcome)
		}
	})
	record.RecentForm.Available = len(record.RecentForm.Sequence) > 0

	span.SetAttributes(
		attribute.Int("lifetime_blocks", len(record.Lifetime)),
		attribute.Int("recent_blocks", len(record.Recent)),
	)
	return record, nil
}

func extractBlocks(sel *goquery.Selection) []StatBlock {
	var blocks []StatBlock
	sel.Find(selBlock).Each(func(_ int, blockSel *goquery.Selection) {
		block := StatBlock{
			Title:     htmlutil.CleanText(blockSel.Find(selBlockTitle).First().Text()),
			MainValue: parseField(blockSel.Find(selBlockMain).First().Text()),
		}

		titles := blockSel.Find(selItemTitle)
		values := blockSel.Find(selItemValue)
		count := titles.Length()
		if values.Length() < count {
			count = values.Length()
		}
		for i := 0; i < count; i++ {
			block.Items = append(block.Items, StatBlockItem{
				Title: htmlutil.CleanText(titles.Eq(i).Text()),
				Value: htmlutil.CleanText(values.Eq(i).Text()),
			})
		}

		blocks = append(blocks, block)
	})
	return blocks
}

// imageSrc resolves an image's src against the page url since the
// site mixes absolute avatar cdn links with site-relative badge paths
func imageSrc(sel *goquery.Selection, pageUrl string) string {
	src, ok := sel.Attr("src")
	if !ok || src == "" {
		return ""
	}
	base, err := url.Parse(pageUrl)
	if err != nil {
		return src
	}
	resolved, err := base.Parse(src)
	if err != nil {
		return src
	}
	return resolved.String()
}
