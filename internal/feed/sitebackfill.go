package feed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bbxlabs/mirador/internal/logger"
)

// Caps on the alias x domain combinations one backfill pass may issue, so a
// broad allow-list cannot turn a single run into hundreds of fetches.
const (
	maxBackfillAliases = 5
	maxBackfillSites   = 6
	backfillPerFetch   = 10
)

// Default allow-list of national and Tamaulipas-area outlets, used when no
// sites.yaml is configured.
var defaultSites = []string{
	"milenio.com",
	"eluniversal.com.mx",
	"elfinanciero.com.mx",
	"proceso.com.mx",
	"excelsior.com.mx",
	"aristeguinoticias.com",
	"animalpolitico.com",
	"expreso.press",
	"elmanana.com.mx",
}

// SitesConfig is the YAML config structure
// sites:
//   - milenio.com
type SitesConfig struct {
	Sites []string `yaml:"sites"`
}

// LoadSites reads the backfill domain allow-list from a YAML file.
func LoadSites(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SitesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse sites config: %w", err)
	}
	return cfg.Sites, nil
}

// SiteBackfill issues one fetch per (alias x domain) combination against
// known local-media sites, using the site: operator on the Google News feed.
// It is the most expensive adapter and runs only as the cascade's backfill
// tier.
type SiteBackfill struct {
	fetcher  *Fetcher
	sites    []string
	buildURL func(text, lang, country string) string
}

func NewSiteBackfill(f *Fetcher, sites []string) *SiteBackfill {
	if len(sites) == 0 {
		sites = defaultSites
	}
	return &SiteBackfill{fetcher: f, sites: sites, buildURL: buildGoogleNewsURL}
}

func (p *SiteBackfill) Name() string { return "site-backfill" }

// FetchAll runs the capped alias x site sweep. Localities, when present,
// boost each alias with an OR group. Individual fetch failures are logged
// and skipped; the pass always returns whatever it collected.
func (p *SiteBackfill) FetchAll(ctx context.Context, aliases, localities []string, q Query) []Candidate {
	boosted := boostAliases(aliases, localities)
	if len(boosted) > maxBackfillAliases {
		boosted = boosted[:maxBackfillAliases]
	}
	sites := p.sites
	if len(sites) > maxBackfillSites {
		sites = sites[:maxBackfillSites]
	}

	var out []Candidate
	for _, alias := range boosted {
		for _, site := range sites {
			if ctx.Err() != nil {
				return out
			}
			sq := q
			sq.Text = alias + " site:" + site
			sq.MaxResults = backfillPerFetch

			parsed, err := p.fetcher.FetchFeed(ctx, p.buildURL(sq.Text, sq.Language, sq.Country))
			if err != nil {
				logger.Debug("backfill fetch failed", "site", site, "error", err)
				continue
			}
			out = append(out, entriesToCandidates(parsed, sq)...)
		}
	}
	return out
}

// boostAliases quotes each alias and, when locality hints exist, appends an
// OR group of quoted localities: "alias" ("City1" OR "City2").
func boostAliases(aliases, localities []string) []string {
	var group string
	if len(localities) > 0 {
		quoted := make([]string, 0, len(localities))
		for _, l := range localities {
			if s := strings.TrimSpace(l); s != "" {
				quoted = append(quoted, `"`+s+`"`)
			}
		}
		if len(quoted) > 0 {
			group = " (" + strings.Join(quoted, " OR ") + ")"
		}
	}

	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if s := strings.TrimSpace(a); s != "" {
			out = append(out, `"`+s+`"`+group)
		}
	}
	return out
}
