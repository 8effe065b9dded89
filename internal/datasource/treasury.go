package datasource

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/seenimoa/fairvalue/internal/config"
)

const (
	treasuryDataset   = "daily_treasury_yield_curve"
	treasuryTenYearTH = "10 Yr"
)

// Treasury is a RiskFreeSource reading the 10-year par yield from the
// treasury.gov daily yield curve. It reads the Atom feed first and falls back
// to scraping the TextView HTML table.
type Treasury struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	parser  *gofeed.Parser
	now     func() time.Time
}

// NewTreasury creates a treasury.gov source from the data config.
func NewTreasury(cfg config.DataConfig) *Treasury {
	return &Treasury{
		baseURL: strings.TrimRight(cfg.TreasuryBaseURL, "/"),
		client:  newHTTPClient(cfg),
		limiter: newLimiter(cfg),
		parser:  gofeed.NewParser(),
		now:     time.Now,
	}
}

// Name returns the data source name.
func (t *Treasury) Name() string { return "U.S. Treasury" }

// GetRiskFreeRate returns the latest 10-year yield as a fraction. The current
// month is tried first, then the previous one, since early in a month the
// current page can be empty.
func (t *Treasury) GetRiskFreeRate(ctx context.Context) (float64, error) {
	now := t.now().UTC()
	months := []string{now.Format("200601"), now.AddDate(0, -1, 0).Format("200601")}

	var errs []error
	for _, month := range months {
		pct, err := t.fromFeed(ctx, month)
		if err == nil {
			return pct / 100, nil
		}
		errs = append(errs, err)

		pct, err = t.fromTable(ctx, month)
		if err == nil {
			return pct / 100, nil
		}
		errs = append(errs, err)
	}
	return 0, fmt.Errorf("treasury: %w", errors.Join(errs...))
}

// yieldProperties is the OData property bag inside each feed entry.
type yieldProperties struct {
	Date    string `xml:"NEW_DATE"`
	TenYear string `xml:"BC_10YEAR"`
}

func (t *Treasury) fromFeed(ctx context.Context, month string) (float64, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	u := fmt.Sprintf("%s/pages/xml?data=%s&field_tdr_date_value_month=%s", t.baseURL, treasuryDataset, month)
	data, err := getBytes(ctx, t.client, u, map[string]string{"Accept": "application/atom+xml, application/xml"})
	if err != nil {
		return 0, fmt.Errorf("feed %s: %w", month, err)
	}

	feed, err := t.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", month, err)
	}

	var latest yieldProperties
	var found bool
	for _, item := range feed.Items {
		var props yieldProperties
		if err := xml.Unmarshal([]byte(item.Content), &props); err != nil || props.TenYear == "" {
			continue
		}
		if !found || props.Date > latest.Date {
			latest, found = props, true
		}
	}
	if !found {
		return 0, fmt.Errorf("feed %s: %w", month, ErrNoData)
	}
	return strconv.ParseFloat(strings.TrimSpace(latest.TenYear), 64)
}

func (t *Treasury) fromTable(ctx context.Context, month string) (float64, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	u := fmt.Sprintf("%s/TextView?type=%s&field_tdr_date_value_month=%s", t.baseURL, treasuryDataset, month)
	body, _, err := doGet(ctx, t.client, u, map[string]string{"Accept": "text/html"})
	if err != nil {
		return 0, fmt.Errorf("table %s: %w", month, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return 0, fmt.Errorf("parse treasury HTML: %w", err)
	}

	table := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return tenYearColumn(s) >= 0
	}).First()
	col := tenYearColumn(table)
	if col < 0 {
		return 0, fmt.Errorf("table %s: %w", month, ErrNoData)
	}

	// Rows are in date order; the last row with a value is the latest.
	var val float64
	var found bool
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(row.Find("td").Eq(col).Text())
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			val, found = v, true
		}
	})
	if !found {
		return 0, fmt.Errorf("table %s: %w", month, ErrNoData)
	}
	return val, nil
}

// tenYearColumn returns the index of the "10 Yr" header cell, or -1.
func tenYearColumn(table *goquery.Selection) int {
	col := -1
	table.Find("thead th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.TrimSpace(th.Text()) == treasuryTenYearTH {
			col = i
			return false
		}
		return true
	})
	return col
}
