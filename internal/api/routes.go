package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/fatebot/internal/character"
	"github.com/zulandar/fatebot/internal/sheet"
	"gorm.io/gorm"
)

// maxCodeBytes bounds the size of a submitted character code.
const maxCodeBytes = 1 << 20

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	router.POST("/decode", handleDecode())

	guild := router.Group("/guilds/:guild/characters")
	guild.POST("", handleImport(db))
	guild.GET("", handleList(db))
	guild.GET("/:id", handleGet(db))
}

// readCode reads the raw request body as a character code.
func readCode(c *gin.Context) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCodeBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "character code too large"})
			return "", false
		}
		log.Printf("api: read request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body"})
		return "", false
	}
	return string(body), true
}

func handleDecode() gin.HandlerFunc {
	return func(c *gin.Context) {
		code, ok := readCode(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newSheetView(sheet.Decode(code)))
	}
}

func handleImport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.Query("owner")
		if owner == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner query parameter is required"})
			return
		}
		code, ok := readCode(c)
		if !ok {
			return
		}
		id, err := character.Persist(c.Request.Context(), db, sheet.Decode(code), c.Param("guild"), owner)
		if err != nil {
			log.Printf("api: import: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

func handleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		chars, err := character.List(c.Request.Context(), db, c.Param("guild"), c.Query("owner"))
		if err != nil {
			log.Printf("api: list: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]characterSummary, 0, len(chars))
		for _, ch := range chars {
			out = append(out, newCharacterSummary(ch))
		}
		c.JSON(http.StatusOK, gin.H{"characters": out})
	}
}

func handleGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
			return
		}
		ch, err := character.Get(c.Request.Context(), db, c.Param("guild"), uint(id))
		if errors.Is(err, character.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			log.Printf("api: get: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, newCharacterView(ch))
	}
}
