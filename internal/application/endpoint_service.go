package application

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// openapiCandidates are the well-known paths a FastAPI-style service exposes
// its schema under.
var openapiCandidates = []string{
	"/openapi.json",
	"/api/openapi.json",
	"/swagger.json",
	"/api/docs/openapi.json",
}

// knownProbe is one common REST endpoint probed unconditionally.
type knownProbe struct {
	method      string
	path        string
	description string
}

var knownProbes = []knownProbe{
	{http.MethodGet, "/api/health", "service health"},
	{http.MethodGet, "/api/frames", "list captured frames"},
	{http.MethodGet, "/api/frames/1", "fetch one frame"},
	{http.MethodGet, "/api/ocr/1", "ocr text for a frame"},
	{http.MethodGet, "/api/search", "full-text search"},
	{http.MethodPost, "/api/metadata", "set frame metadata"},
	{http.MethodGet, "/api/metadata/1", "fetch frame metadata"},
	{http.MethodGet, "/api/config", "service configuration"},
	{http.MethodGet, "/api/entities/count", "entity count"},
	{http.MethodGet, "/api/status", "detailed status"},
	{http.MethodPost, "/api/scan", "trigger a scan"},
	{http.MethodGet, "/api/version", "service version"},
}

// Deep-scan cross product components.
var (
	deepBasePaths = []string{"/api", "/api/v1"}
	deepResources = []string{"entities", "frames", "ocr", "metadata", "tags", "screenshots"}
	deepSuffixes  = []string{"", "/count", "/recent", "/stats"}
)

// endpointGroupSpec defines the five fixed functional buckets.
type endpointGroupSpec struct {
	name     string
	patterns []string
}

var groupSpecs = []endpointGroupSpec{
	{"core_data", []string{"/frames", "/ocr", "/entities", "/screenshots"}},
	{"search", []string{"/search", "/query"}},
	{"health", []string{"/health", "/status", "/version"}},
	{"configuration", []string{"/config", "/settings"}},
	{"admin", []string{"/scan", "/reindex", "/migrate", "/admin"}},
}

// EndpointService discovers and grades the REST surface of the memos
// service by schema fetch and active probing.
type EndpointService struct {
	prober  domain.Prober
	baseURL string
	rules   domain.Rules
	limiter *rate.Limiter
	logger  hclog.Logger
}

// Probes are rate limited so discovery does not look like a port scan to
// the local service.
const probesPerSecond = 20

func NewEndpointService(prober domain.Prober, baseURL string, rules domain.Rules, logger hclog.Logger) *EndpointService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &EndpointService{
		prober:  prober,
		baseURL: baseURL,
		rules:   rules,
		limiter: rate.NewLimiter(rate.Limit(probesPerSecond), probesPerSecond),
		logger:  logger,
	}
}

// Discover merges three endpoint sources (schema, known probes, optional
// deep scan), re-tests each discovered endpoint for availability, and
// groups the results into the fixed functional buckets.
func (s *EndpointService) Discover(ctx context.Context, deepScan bool) (*domain.EndpointReport, error) {
	report := &domain.EndpointReport{
		BaseURL:    s.baseURL,
		Timestamp:  time.Now(),
		DeepScan:   deepScan,
		Discovered: map[string]*domain.EndpointInfo{},
	}

	s.discoverFromSchema(ctx, report)
	s.probeKnown(ctx, report)
	if deepScan {
		s.probeDeep(ctx, report)
	}

	for _, ep := range sortedEndpoints(report.Discovered) {
		s.retest(ctx, ep)
	}

	report.Groups = s.group(report.Discovered)
	s.logger.Info("endpoint discovery finished",
		"discovered", len(report.Discovered), "deep_scan", deepScan)
	return report, ctx.Err()
}

// discoverFromSchema tries each OpenAPI candidate path and folds its paths
// section into the discovered set. A service without a schema is fine.
func (s *EndpointService) discoverFromSchema(ctx context.Context, report *domain.EndpointReport) {
	type openapiDoc struct {
		Paths map[string]map[string]struct {
			Summary string `json:"summary"`
		} `json:"paths"`
	}

	for _, candidate := range openapiCandidates {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		var doc openapiDoc
		if err := s.prober.FetchJSON(ctx, candidate, &doc); err != nil {
			continue
		}
		for path, ops := range doc.Paths {
			for method, op := range ops {
				method = strings.ToUpper(method)
				ep := &domain.EndpointInfo{
					Path:        path,
					Method:      method,
					Description: op.Summary,
				}
				if _, seen := report.Discovered[ep.Key()]; !seen {
					report.Discovered[ep.Key()] = ep
				}
			}
		}
		s.logger.Debug("openapi schema found", "path", candidate, "endpoints", len(doc.Paths))
		return
	}
}

// probeKnown checks the hardcoded common endpoints. Any status other than
// 404/405 means the route exists.
func (s *EndpointService) probeKnown(ctx context.Context, report *domain.EndpointReport) {
	for _, p := range knownProbes {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		status, _, err := s.prober.Probe(ctx, p.method, p.path)
		if err != nil || status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
			continue
		}
		ep := &domain.EndpointInfo{Path: p.path, Method: p.method, Description: p.description}
		if _, seen := report.Discovered[ep.Key()]; !seen {
			report.Discovered[ep.Key()] = ep
		}
	}
}

// probeDeep HEAD-probes the base x resource x suffix cross product.
func (s *EndpointService) probeDeep(ctx context.Context, report *domain.EndpointReport) {
	for _, base := range deepBasePaths {
		for _, resource := range deepResources {
			for _, suffix := range deepSuffixes {
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
				path := fmt.Sprintf("%s/%s%s", base, resource, suffix)
				status, _, err := s.prober.Probe(ctx, http.MethodHead, path)
				if err != nil || status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
					continue
				}
				ep := &domain.EndpointInfo{Path: path, Method: http.MethodGet}
				if _, seen := report.Discovered[ep.Key()]; !seen {
					report.Discovered[ep.Key()] = ep
				}
			}
		}
	}
}

// retest probes one discovered endpoint again and folds the outcome into
// its availability score.
func (s *EndpointService) retest(ctx context.Context, ep *domain.EndpointInfo) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	status, elapsed, err := s.prober.Probe(ctx, ep.Method, ep.Path)
	ok := err == nil && status < http.StatusInternalServerError &&
		status != http.StatusNotFound
	ep.RecordProbe(ok, elapsed, time.Now())
}

// group sorts endpoints into the five fixed buckets by substring match and
// grades each bucket against the implemented allow-list.
func (s *EndpointService) group(discovered map[string]*domain.EndpointInfo) []domain.EndpointGroup {
	implemented := map[string]bool{}
	for _, e := range s.rules.ImplementedEndpoints {
		implemented[e] = true
	}

	groups := make([]domain.EndpointGroup, 0, len(groupSpecs))
	for _, spec := range groupSpecs {
		g := domain.EndpointGroup{Name: spec.name, Patterns: spec.patterns}
		matched := 0
		for _, ep := range sortedEndpoints(discovered) {
			for _, pat := range spec.patterns {
				if strings.Contains(ep.Path, pat) {
					g.Endpoints = append(g.Endpoints, ep)
					if implemented[normalizeKey(ep)] {
						matched++
					}
					break
				}
			}
		}
		switch {
		case len(g.Endpoints) == 0 || matched == 0:
			g.Status = domain.StatusMissing
		case matched == len(g.Endpoints):
			g.Status = domain.StatusImplemented
		default:
			g.Status = domain.StatusPartial
		}
		groups = append(groups, g)
	}
	return groups
}

// normalizeKey collapses numeric path segments to {id} so probes like
// /api/frames/1 match the allow-list entry /api/frames/{id}.
func normalizeKey(ep *domain.EndpointInfo) string {
	parts := strings.Split(ep.Path, "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = "{id}"
		}
	}
	return ep.Method + " " + strings.Join(parts, "/")
}

func sortedEndpoints(m map[string]*domain.EndpointInfo) []*domain.EndpointInfo {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*domain.EndpointInfo, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
