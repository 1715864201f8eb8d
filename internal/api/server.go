// Package api is the HTTP surface: routes, request decoding and the error
// envelope.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"productcatalog/internal/auth"
	"productcatalog/internal/blobstore"
	"productcatalog/internal/catalog"
	"productcatalog/internal/logging"
	"productcatalog/internal/metrics"
	"productcatalog/internal/users"
)

type Options struct {
	Log     *zap.Logger
	DB      *gorm.DB
	Users   *users.Service
	Catalog *catalog.Service
	Gate    *auth.Gate
	Metrics *metrics.Metrics

	// MaxUploadBytes caps the image part of product requests.
	MaxUploadBytes int64
	// UploadDir is served under blobstore.DefaultPublicPrefix when set.
	UploadDir string
	// ClientURL is a comma separated list of allowed CORS origins; empty
	// allows any origin.
	ClientURL  string
	Production bool
}

type Server struct {
	log       *zap.Logger
	db        *gorm.DB
	users     *users.Service
	catalog   *catalog.Service
	gate      *auth.Gate
	metrics   *metrics.Metrics
	maxUpload int64

	engine  *gin.Engine
	handler http.Handler
}

func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:       log.Named("api"),
		db:        opts.DB,
		users:     opts.Users,
		catalog:   opts.Catalog,
		gate:      opts.Gate,
		metrics:   opts.Metrics,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 5 << 20
	}
	s.engine = s.routes(opts.UploadDir)
	s.handler = wrap(s.engine, opts)
	return s
}

// Engine is the bare gin router.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler is the router behind the CORS and security header middleware.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes(uploadDir string) *gin.Engine {
	r := gin.New()
	r.Use(logging.Middleware(s.log))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
	}
	r.Use(renderErrors(s.log), recovery(s.log))

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	if uploadDir != "" {
		r.Static(blobstore.DefaultPublicPrefix, uploadDir)
	}

	api := r.Group("/api")

	u := api.Group("/users")
	u.GET("", s.listUsers)
	u.POST("/signup", s.signup)
	u.POST("/login", s.login)

	p := api.Group("/products")
	p.GET("/:gtin", s.productByGTIN)
	p.GET("/user/:userId", s.productsByUser)

	// everything below needs a bearer token
	authed := p.Group("", s.gate.RequireAuth(), cleanupMultipart)
	authed.POST("", s.createProduct)
	authed.PATCH("/:gtin", s.updateProduct)
	authed.DELETE("/:gtin", s.deleteProduct)

	r.NoRoute(notFound)
	return r
}

func wrap(h http.Handler, opts Options) http.Handler {
	origins := []string{"*"}
	if opts.ClientURL != "" {
		origins = origins[:0]
		for _, o := range strings.Split(opts.ClientURL, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	h = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		MaxAge:         300,
	}).Handler(h)

	sec := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})
	return sec.Handler(h)
}
