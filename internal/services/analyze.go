package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"

	"sniper/internal/config"
	"sniper/internal/extract"
	"sniper/internal/fetch"
	"sniper/internal/llm"
	"sniper/internal/marketplace"
	"sniper/internal/metrics"
	"sniper/internal/model"
)

// Sentinel errors mapped to user-visible responses by the HTTP layer.
var (
	ErrNoLink        = errors.New("no link provided")
	ErrQuotaExceeded = errors.New("daily limit reached")
)

// untitledProduct is the display placeholder for a product whose title
// could not be extracted.
const untitledProduct = "Untitled product"

// pageExcerptLimit caps how much page markdown goes into the scoring
// prompt and the stored snapshot.
const pageExcerptLimit = 4000

// AnalyzeService runs the full pipeline for one product URL:
// normalize, fetch (with site API short-circuit and rendered fallback),
// extract, score, assemble, persist. Scrape-side failures degrade to
// empty extraction; only scorer failures abort the request.
type AnalyzeService interface {
	Analyze(ctx context.Context, link, userID string) (*model.Analysis, error)
}

// Storage is the slice of the store the pipeline needs: best-effort
// persistence and the advisory daily count. Satisfied by *store.Store.
type Storage interface {
	SaveAnalysis(ctx context.Context, a *model.Analysis, extracted model.Product) error
	CountAnalysesToday(ctx context.Context, userID string) (int, error)
}

type analyzeService struct {
	cfg      *config.Config
	registry *marketplace.Registry
	fetcher  fetch.Fetcher
	rendered fetch.Fetcher
	scorer   llm.Scorer
	st       Storage
	logger   *slog.Logger
}

// NewAnalyzeService wires the pipeline stages together. rendered and st
// may be nil; the corresponding steps are skipped.
func NewAnalyzeService(
	cfg *config.Config,
	registry *marketplace.Registry,
	fetcher fetch.Fetcher,
	rendered fetch.Fetcher,
	scorer llm.Scorer,
	st Storage,
	logger *slog.Logger,
) AnalyzeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &analyzeService{
		cfg:      cfg,
		registry: registry,
		fetcher:  fetcher,
		rendered: rendered,
		scorer:   scorer,
		st:       st,
		logger:   logger,
	}
}

func (s *analyzeService) Analyze(ctx context.Context, link, userID string) (*model.Analysis, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, ErrNoLink
	}
	if u, err := url.Parse(link); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, ErrNoLink
	}

	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	normalized := s.registry.Normalize(ctx, link)
	site := s.registry.Lookup(normalized)

	product, pageMarkdown := s.extractProduct(ctx, site, normalized)

	domain := hostOf(normalized)
	verdict, err := s.scorer.Score(ctx, llm.PromptInput{
		URL:         normalized,
		Domain:      domain,
		Product:     product,
		PageExcerpt: pageMarkdown,
	})
	metrics.RecordVerdict(s.cfg.LLM.OpenAI.Model, err == nil)
	if err != nil {
		return nil, err
	}

	analysis := assemble(normalized, domain, userID, product, verdict, pageMarkdown)

	if s.st != nil {
		if err := s.st.SaveAnalysis(ctx, analysis, product); err != nil {
			s.logger.Warn("save analysis failed", "url", normalized, "error", err)
		}
	}

	return analysis, nil
}

// checkQuota enforces the advisory per-user daily limit. Counting errors
// fail open: a storage hiccup must not lock users out.
func (s *analyzeService) checkQuota(ctx context.Context, userID string) error {
	if userID == "" || s.st == nil {
		return nil
	}
	count, err := s.st.CountAnalysesToday(ctx, userID)
	if err != nil {
		s.logger.Warn("quota count failed, allowing request", "user_id", userID, "error", err)
		return nil
	}
	if count >= s.cfg.Quota.DailyLimit {
		metrics.RecordQuotaRejection()
		return ErrQuotaExceeded
	}
	return nil
}

// extractProduct obtains the merged product metadata for a URL. The site
// product API is tried first when available; otherwise the page is
// fetched and both the site-specific and generic extractors run over it.
// Blocked or failed fetches yield an empty product: the extractors never
// see block-page content.
func (s *analyzeService) extractProduct(ctx context.Context, site *marketplace.Site, normalized string) (model.Product, string) {
	if site != nil && site.FetchProduct != nil {
		if p, ok := site.FetchProduct(ctx, normalized); ok {
			return p, ""
		}
	}

	out := s.fetcher.Fetch(ctx, normalized)
	metrics.RecordFetch(out.Engine, string(out.Kind))

	if out.Kind == fetch.KindBlocked && s.rendered != nil {
		s.logger.Info("plain fetch blocked, trying rendered fallback",
			"url", normalized, "reason", out.Reason)
		retry := s.rendered.Fetch(ctx, normalized)
		metrics.RecordFetch(retry.Engine, string(retry.Kind))
		if retry.Kind == fetch.KindHTML {
			out = retry
		}
	}

	switch out.Kind {
	case fetch.KindHTML:
		var siteProduct model.Product
		if site != nil && site.ExtractStructured != nil {
			siteProduct = site.ExtractStructured(out.HTML)
		}
		generic := extract.Generic(out.HTML)
		return extract.Merge(siteProduct, generic), markdownExcerpt(normalized, out.HTML)
	case fetch.KindBlocked:
		s.logger.Info("fetch blocked, scoring with URL only", "url", normalized, "reason", out.Reason)
	case fetch.KindError:
		s.logger.Warn("fetch failed, scoring with URL only", "url", normalized, "error", out.Err)
	}
	return model.Product{}, ""
}

// assemble merges verdict and extracted fields into the outward-facing
// record, collapsing absent optionals to display defaults.
func assemble(normalizedURL, domain, userID string, p model.Product, v model.Verdict, pageMarkdown string) *model.Analysis {
	return &model.Analysis{
		ID:           uuid.New().String(),
		UserID:       userID,
		URL:          normalizedURL,
		Domain:       domain,
		Score:        v.Score,
		Verdict:      v.Verdict,
		Reason:       v.Reason,
		Title:        deref(p.Title, untitledProduct),
		ImageURL:     deref(p.ImageURL, ""),
		Price:        deref(p.Price, ""),
		Currency:     deref(p.Currency, ""),
		Rating:       deref(p.Rating, ""),
		ReviewCount:  deref(p.ReviewCount, ""),
		PageMarkdown: pageMarkdown,
	}
}

func deref(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// markdownExcerpt converts page HTML to markdown for the prompt context
// and the persisted snapshot. Conversion failures just drop the excerpt.
func markdownExcerpt(rawURL, html string) string {
	converter := htmlmd.NewConverter(hostOf(rawURL), true, nil)
	md, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	md = strings.TrimSpace(md)
	if len(md) > pageExcerptLimit {
		// Truncate on a rune boundary; a split multi-byte character would
		// make the excerpt invalid UTF-8 and Postgres rejects that in TEXT
		// columns.
		cut := pageExcerptLimit
		for cut > 0 && !utf8.RuneStart(md[cut]) {
			cut--
		}
		md = md[:cut]
	}
	return md
}
