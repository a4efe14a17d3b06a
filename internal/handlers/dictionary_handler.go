package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/underwriting-intake/internal/services"
)

type DictionaryHandler struct {
	dict *services.ConditionDictionary
}

func NewDictionaryHandler(dict *services.ConditionDictionary) *DictionaryHandler {
	return &DictionaryHandler{dict: dict}
}

// HandleSearch handles GET /v1/dictionary/search?q=
func (h *DictionaryHandler) HandleSearch(c *fiber.Ctx) error {
	return c.JSON(h.dict.Search(c.Query("q")))
}
