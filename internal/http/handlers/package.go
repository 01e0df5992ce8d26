package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"photoquest/internal/domain"
	"photoquest/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.Packages.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (h *Handler) ListAllPackages(c *gin.Context) {
	pkgs, err := h.Packages.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

// CreatePackage takes multipart fields name, coins, price and the qr file.
func (h *Handler) CreatePackage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	coins, err := strconv.ParseInt(c.PostForm("coins"), 10, 64)
	if err != nil {
		badRequest(c, "coins must be an integer")
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		badRequest(c, "price must be a decimal")
		return
	}
	qr, err := h.formFile(c, "qr")
	if err != nil {
		respondError(c, err)
		return
	}

	pkg, err := h.Packages.Create(c.Request.Context(), p.UserID, service.NewPackage{
		Name:  strings.TrimSpace(c.PostForm("name")),
		Coins: coins,
		Price: price,
	}, qr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"package": pkg})
}

// UpdatePackage applies the multipart fields that are present.
func (h *Handler) UpdatePackage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var u domain.PackageUpdate
	if v, ok := c.GetPostForm("name"); ok {
		v = strings.TrimSpace(v)
		u.Name = &v
	}
	if v, ok := c.GetPostForm("coins"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "coins must be an integer")
			return
		}
		u.Coins = &n
	}
	if v, ok := c.GetPostForm("price"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			badRequest(c, "price must be a decimal")
			return
		}
		u.Price = &d
	}
	if v, ok := c.GetPostForm("status"); ok {
		s := domain.PackageStatus(v)
		u.Status = &s
	}

	qr, err := h.formFile(c, "qr")
	if err != nil {
		respondError(c, err)
		return
	}

	pkg, err := h.Packages.Update(c.Request.Context(), p.UserID, id, u, qr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"package": pkg})
}

func (h *Handler) DeletePackage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Packages.Delete(c.Request.Context(), p.UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) TogglePackageStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	pkg, err := h.Packages.ToggleStatus(c.Request.Context(), p.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"package": pkg})
}
