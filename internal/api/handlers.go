package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"productcatalog/internal/apperr"
	"productcatalog/internal/auth"
	"productcatalog/internal/db"
	"productcatalog/internal/models"
	"productcatalog/internal/users"
)

// ---------- users ----------

func (s *Server) signup(c *gin.Context) {
	var in users.SignupInput
	if err := c.ShouldBind(&in); err != nil {
		fail(c, apperr.Wrap(apperr.KindInvalidInput, err, invalidInputMsg))
		return
	}
	sess, err := s.users.Signup(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) login(c *gin.Context) {
	var in users.LoginInput
	if err := c.ShouldBind(&in); err != nil {
		fail(c, apperr.Wrap(apperr.KindInvalidInput, err, invalidInputMsg))
		return
	}
	sess, err := s.users.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) listUsers(c *gin.Context) {
	list, err := s.users.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

// ---------- products ----------

func (s *Server) productByGTIN(c *gin.Context) {
	p, err := s.catalog.ProductByGTIN(c.Request.Context(), c.Param("gtin"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (s *Server) productsByUser(c *gin.Context) {
	items, err := s.catalog.ProductsByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []models.Product{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createProduct(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, apperr.New(apperr.KindUnauthenticated, "Authentication failed!"))
		return
	}
	in, err := productInput(c, s.maxUpload)
	if err != nil {
		fail(c, err)
		return
	}
	p, err := s.catalog.Create(c.Request.Context(), caller, in)
	if err != nil {
		fail(c, err)
		return
	}
	s.present(c, p)
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

func (s *Server) updateProduct(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, apperr.New(apperr.KindUnauthenticated, "Authentication failed!"))
		return
	}
	in, err := productInput(c, s.maxUpload)
	if err != nil {
		fail(c, err)
		return
	}
	p, err := s.catalog.Update(c.Request.Context(), caller, c.Param("gtin"), in)
	if err != nil {
		fail(c, err)
		return
	}
	s.present(c, p)
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (s *Server) deleteProduct(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, apperr.New(apperr.KindUnauthenticated, "Authentication failed!"))
		return
	}
	p, err := s.catalog.Delete(c.Request.Context(), caller, c.Param("gtin"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Deleted product %s (%s).", p.GTIN, p.Name)})
}

// present swaps the image key for a URL. The record is already committed,
// failures are only logged.
func (s *Server) present(c *gin.Context, p *models.Product) {
	if err := s.catalog.ResolveImage(c.Request.Context(), p); err != nil {
		s.log.Warn("could not resolve image url", zap.String("gtin", p.GTIN), zap.Error(err))
	}
}

// ---------- ops ----------

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, s.db); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
