// Package catalog provides the HTTP handlers for the catalog API: the
// about document, metadata and listing routes, and the array and dataframe
// payload routes.
package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canopy-data/canopy/internal/api/common"
	"github.com/canopy-data/canopy/internal/auth"
	"github.com/canopy-data/canopy/internal/service"
	"github.com/canopy-data/canopy/pkg/codec"
	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/paginate"
	"github.com/canopy-data/canopy/pkg/query"
	"github.com/canopy-data/canopy/pkg/resource"
	"github.com/canopy-data/canopy/pkg/structure"
	"github.com/canopy-data/canopy/pkg/versions"
)

// APIVersion is the protocol revision reported by the about document.
const APIVersion = 0

// PayloadObserver counts encoded payload bytes as they are served.
type PayloadObserver interface {
	RecordPayload(family, mediaType string, bytes int)
}

// Config carries the collaborators the catalog routes serve from. Service
// is required; a nil registry falls back to the built-in defaults, and a
// nil TokenHandler answers login attempts with 404. SessionGuard, when
// set, wraps every data route; the about document and the token endpoint
// stay public so clients can discover how to log in.
type Config struct {
	Service       service.CatalogService
	Serialization *codec.SerializationRegistry
	Queries       *query.Registry
	TokenHandler  http.Handler
	SessionGuard  func(http.Handler) http.Handler
	Payloads      PayloadObserver
	AuthRequired  bool
}

// Routes handles HTTP requests for the catalog API.
type Routes struct {
	service       service.CatalogService
	serialization *codec.SerializationRegistry
	queries       *query.Registry
	payloads      PayloadObserver
	authRequired  bool
}

// NewRoutes creates a Routes instance from cfg, filling in default
// registries where none were given.
func NewRoutes(cfg Config) *Routes {
	serialization := cfg.Serialization
	if serialization == nil {
		serialization = codec.DefaultRegistry()
	}
	queries := cfg.Queries
	if queries == nil {
		queries = query.DefaultRegistry()
	}
	return &Routes{
		service:       cfg.Service,
		serialization: serialization,
		queries:       queries,
		payloads:      cfg.Payloads,
		authRequired:  cfg.AuthRequired,
	}
}

// Router creates and configures the HTTP router for the catalog API.
func Router(cfg Config) http.Handler {
	routes := NewRoutes(cfg)

	tokens := cfg.TokenHandler
	if tokens == nil {
		tokens = auth.NewTokenHandler(nil, nil)
	}

	r := chi.NewRouter()

	r.Get("/", routes.getAbout)
	r.Method(http.MethodPost, "/token", tokens)

	r.Group(func(gr chi.Router) {
		if cfg.SessionGuard != nil {
			gr.Use(cfg.SessionGuard)
		}
		gr.Get("/metadata", routes.getMetadata)
		gr.Get("/metadata/*", routes.getMetadata)
		gr.Get("/entries", routes.listEntries)
		gr.Get("/entries/*", routes.listEntries)
		gr.Get("/search", routes.search)
		gr.Get("/search/*", routes.search)
		gr.Get("/array/block/*", routes.getArrayBlock)
		gr.Get("/array/full/*", routes.getArrayFull)
		gr.Get("/dataframe/full/*", routes.getDataFrameFull)
	})

	return r
}

// AboutAuthentication describes the server's login requirements.
type AboutAuthentication struct {
	Required bool `json:"required"`
}

// AboutResponse is the server self-description served at the API root.
type AboutResponse struct {
	APIVersion     int                          `json:"api_version"`
	LibraryVersion string                       `json:"library_version"`
	Formats        map[string][]string          `json:"formats"`
	Aliases        map[string]map[string]string `json:"aliases"`
	Queries        []string                     `json:"queries"`
	Authentication AboutAuthentication          `json:"authentication"`
}

// getAbout handles GET /api/
func (routes *Routes) getAbout(w http.ResponseWriter, r *http.Request) {
	about := AboutResponse{
		APIVersion:     APIVersion,
		LibraryVersion: versions.GetVersionInfo().Version,
		Formats: map[string][]string{
			codec.FamilyArray:     routes.serialization.MediaTypes(codec.FamilyArray),
			codec.FamilyDataFrame: routes.serialization.MediaTypes(codec.FamilyDataFrame),
		},
		Aliases: map[string]map[string]string{
			codec.FamilyArray:     routes.serialization.Aliases(codec.FamilyArray),
			codec.FamilyDataFrame: routes.serialization.Aliases(codec.FamilyDataFrame),
		},
		Queries:        routes.queries.Keys(nil),
		Authentication: AboutAuthentication{Required: routes.authRequired},
	}
	common.WriteStructured(w, r, http.StatusOK, common.Response{Data: about})
}

// getMetadata handles GET /api/metadata/{path}
func (routes *Routes) getMetadata(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	fields, err := parseFields(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := routes.service.GetMetadata(r.Context(),
		service.WithPath[service.GetMetadataOptions](path),
		service.WithPrincipal[service.GetMetadataOptions](auth.PrincipalFrom(r.Context())),
		service.WithFields[service.GetMetadataOptions](fields),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	links := paginate.Links{Self: "/api/metadata/" + path}
	common.WriteStructured(w, r, http.StatusOK, common.Response{Data: res, Links: &links})
}

// listEntries handles GET /api/entries/{path}
func (routes *Routes) listEntries(w http.ResponseWriter, r *http.Request) {
	routes.handleListing(w, r, "/api/entries", nil)
}

// search handles GET /api/search/{path}
func (routes *Routes) search(w http.ResponseWriter, r *http.Request) {
	queries, err := query.ParseFilters(r.URL.RawQuery, routes.queries)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	routes.handleListing(w, r, "/api/search", queries)
}

// handleListing serves one page of a catalog's children for the entries
// and search routes, which differ only in the queries they apply.
func (routes *Routes) handleListing(w http.ResponseWriter, r *http.Request, route string, queries []entry.Query) {
	path := chi.URLParam(r, "*")
	fields, err := parseFields(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, limit, err := parsePage(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := []service.Option[service.ListEntriesOptions]{
		service.WithPath[service.ListEntriesOptions](path),
		service.WithPrincipal[service.ListEntriesOptions](auth.PrincipalFrom(r.Context())),
		service.WithFields[service.ListEntriesOptions](fields),
		service.WithPage(offset, limit),
	}
	if len(queries) > 0 {
		opts = append(opts, service.WithQueries(queries...))
	}

	listing, err := routes.service.ListEntries(r.Context(), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	links := paginate.NewLinks(route, "/"+path, offset, limit, listing.Count)
	common.WriteStructured(w, r, http.StatusOK, common.Response{
		Data:  listing.Resources,
		Meta:  map[string]any{"count": listing.Count},
		Links: &links,
	})
}

// getArrayBlock handles GET /api/array/block/{path}?block=i,j,...
func (routes *Routes) getArrayBlock(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	block, err := parseBlock(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	slices, err := parseSlice(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := []service.Option[service.ReadArrayOptions]{
		service.WithPath[service.ReadArrayOptions](path),
		service.WithPrincipal[service.ReadArrayOptions](auth.PrincipalFrom(r.Context())),
		service.WithBlock(block),
	}
	if len(slices) > 0 {
		opts = append(opts, service.WithSlices(slices))
	}

	arr, err := routes.service.ReadArrayBlock(r.Context(), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	routes.writePayload(w, r, codec.FamilyArray, codec.MediaTypeOctetStream, arr.Bytes(), arr)
}

// getArrayFull handles GET /api/array/full/{path}?slice=...
func (routes *Routes) getArrayFull(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	slices, err := parseSlice(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := []service.Option[service.ReadArrayOptions]{
		service.WithPath[service.ReadArrayOptions](path),
		service.WithPrincipal[service.ReadArrayOptions](auth.PrincipalFrom(r.Context())),
	}
	if len(slices) > 0 {
		opts = append(opts, service.WithSlices(slices))
	}

	arr, err := routes.service.ReadArrayFull(r.Context(), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	routes.writePayload(w, r, codec.FamilyArray, codec.MediaTypeOctetStream, arr.Bytes(), arr)
}

// getDataFrameFull handles GET /api/dataframe/full/{path}
func (routes *Routes) getDataFrameFull(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	frame, err := routes.service.ReadTable(r.Context(),
		service.WithPath[service.ReadTableOptions](path),
		service.WithPrincipal[service.ReadTableOptions](auth.PrincipalFrom(r.Context())),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	routes.writePayload(w, r, codec.FamilyDataFrame, codec.MediaTypeCSV, frameBytes(frame), frame)
}

// writeServiceError maps catalog service failures onto response statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entry.ErrNoSuchEntry), errors.Is(err, entry.ErrWrongCapability):
		common.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, query.ErrUnknownQuery),
		errors.Is(err, query.ErrInvalidArgs),
		errors.Is(err, resource.ErrUnknownField),
		errors.Is(err, structure.ErrInvalidSlice),
		errors.Is(err, structure.ErrBlockOutOfRange),
		errors.Is(err, structure.ErrIndexOutOfRange):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("catalog request failed", "error", err)
		common.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
