package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/wedplan/internal/auth"
	"github.com/mmynk/wedplan/internal/calculator"
	"github.com/mmynk/wedplan/internal/export"
	"github.com/mmynk/wedplan/internal/metrics"
	"github.com/mmynk/wedplan/internal/middleware"
	"github.com/mmynk/wedplan/internal/sharestate"
)

// DrinksServiceName is the fully-qualified name of the DrinksService.
const DrinksServiceName = "wedplan.drinks.v1.DrinksService"

// Procedure paths of the DrinksService.
const (
	DrinksServiceEstimateProcedure        = "/" + DrinksServiceName + "/Estimate"
	DrinksServiceEncodeShareLinkProcedure = "/" + DrinksServiceName + "/EncodeShareLink"
	DrinksServiceDecodeShareLinkProcedure = "/" + DrinksServiceName + "/DecodeShareLink"
	DrinksServiceExportProcedure          = "/" + DrinksServiceName + "/Export"
)

type EstimateRequest struct {
	Input calculator.Input `json:"input"`
}

type EstimateResponse struct {
	Output *calculator.Output `json:"output"`
}

type EncodeShareLinkRequest struct {
	Input calculator.Input `json:"input"`
}

type EncodeShareLinkResponse struct {
	URL   string `json:"url"`
	Query string `json:"query"`
}

type DecodeShareLinkRequest struct {
	// Query is the raw query string of a share link, with or without '?'.
	Query string `json:"query"`
}

type DecodeShareLinkResponse struct {
	Input  calculator.Input   `json:"input"`
	Output *calculator.Output `json:"output"`
}

type ExportRequest struct {
	Input calculator.Input `json:"input"`
}

type ExportResponse struct {
	Receipt *export.Receipt `json:"receipt"`
}

// DrinksService implements the drinks calculator RPCs. Each request gets its
// own DrinksController, so the server holds no calculator state; only the
// per-user export in-flight flags outlive a request.
type DrinksService struct {
	table        *calculator.Table
	exporter     Exporter
	shareBaseURL string
	metrics      *metrics.Metrics
	exports      *ExportGuard
}

// NewDrinksService creates a DrinksService. shareBaseURL is the public URL of
// the calculator page that share links point to.
func NewDrinksService(table *calculator.Table, exporter Exporter, shareBaseURL string, m *metrics.Metrics) *DrinksService {
	return &DrinksService{
		table:        table,
		exporter:     exporter,
		shareBaseURL: shareBaseURL,
		metrics:      m,
		exports:      NewExportGuard(),
	}
}

func (s *DrinksService) controller(ctx context.Context) *DrinksController {
	return NewDrinksController(
		WithTable(s.table),
		WithExporter(s.exporter),
		WithShareBaseURL(s.shareBaseURL),
		WithUserID(middleware.GetUserID(ctx)),
		WithUserEmail(middleware.GetEmail(ctx)),
		WithExportGuard(s.exports),
	)
}

func (s *DrinksService) estimate(in calculator.Input) (*calculator.Output, error) {
	tier := string(in.Tier)
	if !in.Tier.Valid() {
		tier = "unknown"
	}
	out, err := s.table.Estimate(in)
	if err != nil {
		s.metrics.Estimates.WithLabelValues(tier, "invalid").Inc()
		return nil, err
	}
	s.metrics.Estimates.WithLabelValues(tier, "ok").Inc()
	s.metrics.EstimatedCost.Observe(out.TotalCost)
	return out, nil
}

// Estimate computes bottles and cost for the given input.
func (s *DrinksService) Estimate(ctx context.Context, req *connect.Request[EstimateRequest]) (*connect.Response[EstimateResponse], error) {
	out, err := s.estimate(req.Msg.Input)
	if err != nil {
		slog.Debug("Estimate rejected", "error", err)
		return nil, toConnectError(err)
	}
	slog.Debug("Estimate computed",
		"guest_count", req.Msg.Input.GuestCount,
		"tier", req.Msg.Input.Tier,
		"total_cost", out.TotalCost,
	)
	return connect.NewResponse(&EstimateResponse{Output: out}), nil
}

// EncodeShareLink builds the share link for an input.
func (s *DrinksService) EncodeShareLink(ctx context.Context, req *connect.Request[EncodeShareLinkRequest]) (*connect.Response[EncodeShareLinkResponse], error) {
	if err := req.Msg.Input.Validate(); err != nil {
		return nil, toConnectError(err)
	}
	link, err := sharestate.Link(s.shareBaseURL, req.Msg.Input)
	if err != nil {
		slog.Error("EncodeShareLink failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.metrics.ShareLinks.WithLabelValues("encode").Inc()

	return connect.NewResponse(&EncodeShareLinkResponse{
		URL:   link,
		Query: sharestate.Encode(req.Msg.Input).Encode(),
	}), nil
}

// DecodeShareLink turns a share link's query into an input and its estimate.
// Malformed queries decode to defaults; this never returns InvalidArgument.
func (s *DrinksService) DecodeShareLink(ctx context.Context, req *connect.Request[DecodeShareLinkRequest]) (*connect.Response[DecodeShareLinkResponse], error) {
	c := s.controller(ctx)
	c.Load(sharestate.ParseQuery(req.Msg.Query))
	s.metrics.ShareLinks.WithLabelValues("decode").Inc()

	return connect.NewResponse(&DecodeShareLinkResponse{
		Input:  c.Input(),
		Output: c.Output(),
	}), nil
}

// Export renders the estimate for an input and stores it for download. A user
// whose previous export is still running gets ResourceExhausted.
func (s *DrinksService) Export(ctx context.Context, req *connect.Request[ExportRequest]) (*connect.Response[ExportResponse], error) {
	c := s.controller(ctx)
	if err := c.SetInput(req.Msg.Input); err != nil {
		return nil, toConnectError(err)
	}

	receipt, err := c.Export(ctx)
	switch {
	case err == nil:
		s.metrics.Exports.WithLabelValues(metrics.OutcomeOK).Inc()
	case errors.Is(err, ErrExportInProgress):
		s.metrics.Exports.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, toConnectError(err)
	default:
		s.metrics.Exports.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Error("Export failed", "user_id", middleware.GetUserID(ctx), "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&ExportResponse{Receipt: receipt}), nil
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, calculator.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrExportInProgress):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, ErrExportFailure):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// NewDrinksServiceHandler builds an HTTP handler serving every DrinksService
// procedure under the returned path prefix. When jwtManager is set, Export
// requires a session token and the other procedures pick one up if present.
func NewDrinksServiceHandler(svc *DrinksService, jwtManager *auth.JWTManager, opts ...connect.HandlerOption) (string, http.Handler) {
	base := []connect.HandlerOption{connect.WithCodec(JSONCodec{})}
	public, private := base, base
	if jwtManager != nil {
		public = append([]connect.HandlerOption{connect.WithInterceptors(middleware.OptionalAuth(jwtManager))}, base...)
		private = append([]connect.HandlerOption{connect.WithInterceptors(middleware.RequireAuth(jwtManager))}, base...)
	}
	public = append(public, opts...)
	private = append(private, opts...)

	estimate := connect.NewUnaryHandler(DrinksServiceEstimateProcedure, svc.Estimate, public...)
	encode := connect.NewUnaryHandler(DrinksServiceEncodeShareLinkProcedure, svc.EncodeShareLink, public...)
	decode := connect.NewUnaryHandler(DrinksServiceDecodeShareLinkProcedure, svc.DecodeShareLink, public...)
	exportHandler := connect.NewUnaryHandler(DrinksServiceExportProcedure, svc.Export, private...)

	return "/" + DrinksServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DrinksServiceEstimateProcedure:
			estimate.ServeHTTP(w, r)
		case DrinksServiceEncodeShareLinkProcedure:
			encode.ServeHTTP(w, r)
		case DrinksServiceDecodeShareLinkProcedure:
			decode.ServeHTTP(w, r)
		case DrinksServiceExportProcedure:
			exportHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// DrinksServiceClient calls a DrinksService over Connect.
type DrinksServiceClient struct {
	estimate *connect.Client[EstimateRequest, EstimateResponse]
	encode   *connect.Client[EncodeShareLinkRequest, EncodeShareLinkResponse]
	decode   *connect.Client[DecodeShareLinkRequest, DecodeShareLinkResponse]
	export   *connect.Client[ExportRequest, ExportResponse]
}

// NewDrinksServiceClient creates a client for the service at baseURL.
func NewDrinksServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *DrinksServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &DrinksServiceClient{
		estimate: connect.NewClient[EstimateRequest, EstimateResponse](httpClient, baseURL+DrinksServiceEstimateProcedure, opts...),
		encode:   connect.NewClient[EncodeShareLinkRequest, EncodeShareLinkResponse](httpClient, baseURL+DrinksServiceEncodeShareLinkProcedure, opts...),
		decode:   connect.NewClient[DecodeShareLinkRequest, DecodeShareLinkResponse](httpClient, baseURL+DrinksServiceDecodeShareLinkProcedure, opts...),
		export:   connect.NewClient[ExportRequest, ExportResponse](httpClient, baseURL+DrinksServiceExportProcedure, opts...),
	}
}

func (c *DrinksServiceClient) Estimate(ctx context.Context, req *connect.Request[EstimateRequest]) (*connect.Response[EstimateResponse], error) {
	return c.estimate.CallUnary(ctx, req)
}

func (c *DrinksServiceClient) EncodeShareLink(ctx context.Context, req *connect.Request[EncodeShareLinkRequest]) (*connect.Response[EncodeShareLinkResponse], error) {
	return c.encode.CallUnary(ctx, req)
}

func (c *DrinksServiceClient) DecodeShareLink(ctx context.Context, req *connect.Request[DecodeShareLinkRequest]) (*connect.Response[DecodeShareLinkResponse], error) {
	return c.decode.CallUnary(ctx, req)
}

func (c *DrinksServiceClient) Export(ctx context.Context, req *connect.Request[ExportRequest]) (*connect.Response[ExportResponse], error) {
	return c.export.CallUnary(ctx, req)
}

// PageHandler renders the calculator result for a share link: the request's
// query string is decoded exactly as the RPC would and rendered as HTML.
func (s *DrinksService) PageHandler(renderer *export.Renderer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := s.controller(r.Context())
		c.Load(sharestate.FromValues(r.URL.Query()))
		s.metrics.ShareLinks.WithLabelValues("decode").Inc()

		in := c.Input()
		req := export.Request{
			GuestCount: in.GuestCount,
			Moments:    in.Moments.Sorted(),
			Tier:       in.Tier,
			Servings:   in.Servings,
			Output:     c.Output(),
		}
		if link, err := c.ShareLink(); err == nil {
			req.ShareLink = link
		}

		doc, err := renderer.Render(req)
		if err != nil {
			slog.Error("Rendering calculator page failed", "error", err)
			http.Error(w, fmt.Sprintf("rendering failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", doc.ContentType)
		if _, err := w.Write(doc.Body); err != nil {
			slog.Warn("Writing calculator page failed", "error", err)
		}
	})
}
