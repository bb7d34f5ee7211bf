package faceitanalyser

import "time"

// Field is a single extracted stat. Availability is an explicit tag
// rather than a sentinel value so "the site didn't have this" and
// "the value is zero" never blur together.
type Field struct {
	Raw       string  `json:"raw"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
}

func unavailable() Field {
	return Field{}
}

// Form is the ordered recent-match outcome sequence, newest first.
type Form struct {
	Sequence  []string `json:"sequence"`
	Available bool     `json:"available"`
}

type StatBlockItem struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// StatBlock mirrors one totals block on the profile page: a title,
// a big main value and a list of smaller title/value rows under it.
type StatBlock struct {
	Title     string          `json:"title"`
	MainValue Field           `json:"main_value"`
	Items     []StatBlockItem `json:"items"`
}

// StatRecord is the flat structured result of one extraction.
// Nickname, Matches and Rating are mandatory, everything else may be
// unavailable and still render (as placeholders) on the card.
type StatRecord struct {
	Nickname string `json:"nickname"`
	Elo      Field  `json:"elo"`

	Matches    Field `json:"matches"`
	Rating     Field `json:"rating"`
	WinRate    Field `json:"win_rate"`
	AvgKDR     Field `json:"avg_kdr"`
	AvgKPR     Field `json:"avg_kpr"`
	RecentForm Form  `json:"recent_form"`

	AvatarUrl string `json:"avatar_url"`
	FlagUrl   string `json:"flag_url"`
	LevelUrl  string `json:"level_url"`

	// lifetime totals and last-50-matches totals, in page order
	Lifetime []StatBlock `json:"lifetime"`
	Recent   []StatBlock `json:"recent"`

	ExtractedAt time.Time `json:"extracted_at"`
}

// block titles as the site renders them
const (
	blockMatches = "Matches"
	blockWinrate = "Winrate"
	blockKDR     = "Avg. KDR"
	blockRating  = "FA Rating"
	blockKPR     = "Avg. Kills"
)

func findBlock(blocks []StatBlock, title string) (StatBlock, bool) {
	for _, b := range blocks {
		if b.Title == title {
			return b, true
		}
	}
	return StatBlock{}, false
}
