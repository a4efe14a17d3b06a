package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// fiber strings alias the request buffer, which is reused once the handler
// returns; anything that ends up in a store or a worker task must be copied.

func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func query(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Query(key))
}

func formValue(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.FormValue(key))
}

func header(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Get(key))
}
