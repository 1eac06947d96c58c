package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
)

// output renders command results as indented JSON or aligned text.
type output struct {
	format string
	w      io.Writer
}

func (o *output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *output) migrations(res MigrateResult) error {
	if o.format == "json" {
		return o.json(res)
	}
	verb := "pending"
	if res.Applied {
		verb = "applied"
	}
	for _, name := range res.Migrations {
		fmt.Fprintf(o.w, "%s\t%s\n", verb, name)
	}
	return nil
}

func (o *output) seed(res SeedResult) error {
	if o.format == "json" {
		return o.json(res)
	}
	fmt.Fprintf(o.w, "accepted %d reviews, skipped %d duplicates\n", res.Accepted, res.Duplicates)
	return nil
}

func (o *output) submission(res *service.SubmitReviewResult) error {
	if o.format == "json" {
		return o.json(res)
	}
	fmt.Fprintf(o.w, "review %s accepted\n", res.Review.ID)
	o.seller(res.Seller)
	return nil
}

func (o *output) profile(p *domain.Profile) error {
	if o.format == "json" {
		return o.json(p)
	}
	o.seller(p.Seller)

	s := p.Stats
	fmt.Fprintf(o.w, "loaded reviews:  %d (avg %.1f, recommend %d%%)\n", s.ReviewCount, s.AverageRating, s.RecommendRate)
	fmt.Fprintf(o.w, "sentiment:       %d positive, %d neutral, %d negative\n",
		s.PositiveReviewCount, s.NeutralReviewCount, s.NegativeReviewCount)
	fmt.Fprintf(o.w, "recent activity: %d\n", s.RecentActivityCount)

	if len(p.Reviews) == 0 {
		return nil
	}
	fmt.Fprintln(o.w)
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tREVIEWER\tRATING\tRECOMMEND\tSENTIMENT\tPRODUCT")
	for _, r := range p.Reviews {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.ReviewerName, r.Rating,
			domain.FormatRecommend(r.Recommend), r.Sentiment, r.ProductOrContext)
	}
	return tw.Flush()
}

func (o *output) seller(s *domain.Seller) {
	fmt.Fprintf(o.w, "seller:          %s (%s)\n", s.Name, s.ID)
	fmt.Fprintf(o.w, "trust score:     %.1f\n", s.TrustScore)
	fmt.Fprintf(o.w, "total reviews:   %d (avg %.1f, recommend %d%%)\n", s.TotalReviews, s.AverageRating(), s.RecommendRate())
}
