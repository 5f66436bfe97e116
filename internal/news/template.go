package news

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"marketsim/internal/domain"
)

type headlineTemplate struct {
	format    string
	sentiment string
}

var headlineTemplates = []headlineTemplate{
	{"%s beats quarterly earnings expectations", "positive"},
	{"%s announces strategic partnership", "positive"},
	{"Analysts raise %s price target", "positive"},
	{"%s unveils new product line", "positive"},
	{"%s cuts full-year guidance", "negative"},
	{"%s faces regulatory scrutiny", "negative"},
	{"Institutional investors trim %s positions", "negative"},
	{"%s trading volume spikes on heavy flow", "neutral"},
	{"%s holds steady ahead of earnings call", "neutral"},
	{"Options activity picks up in %s", "neutral"},
}

// Template is the deterministic fallback generator. It draws from its own
// seeded source and cannot fail. The mutex serializes draws: fan-out ticks
// fetch from the one shared chain concurrently.
type Template struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewTemplate creates a template provider with its own seed so fallback
// output is reproducible independently of the engine's draw order.
func NewTemplate(seed int64, now func() time.Time) *Template {
	if now == nil {
		now = time.Now
	}
	return &Template{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (t *Template) Name() string { return "template" }

// Fetch generates count templated headlines across symbols.
func (t *Template) Fetch(_ context.Context, symbols []string, count int) ([]domain.NewsItem, error) {
	if len(symbols) == 0 || count <= 0 {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	items := make([]domain.NewsItem, 0, count)
	for i := 0; i < count; i++ {
		sym := symbols[t.rng.Intn(len(symbols))]
		tpl := headlineTemplates[t.rng.Intn(len(headlineTemplates))]
		items = append(items, domain.NewsItem{
			Symbol:    sym,
			Headline:  fmt.Sprintf(tpl.format, sym),
			Sentiment: tpl.sentiment,
			Impact:    float64(t.rng.Intn(100)) / 100,
			Source:    "template",
			Timestamp: t.now(),
		})
	}
	return items, nil
}
