package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"

	"app/config"
	"app/models"
)

func makeAppWithRole(role string, check fiber.Handler) *fiber.App {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userRole", role)
		return c.Next()
	})
	app.Use(check)

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(200).SendString("ok")
	})
	return app
}

func TestCheckRole_AllowsListedRole(t *testing.T) {
	app := makeAppWithRole("admin", CheckRole("admin"))
	req := httptest.NewRequest("GET", "/test", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCheckRole_DeniesOtherRole(t *testing.T) {
	app := makeAppWithRole("viewer", CheckRole("admin"))
	req := httptest.NewRequest("GET", "/test", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(Authenticate)
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/test", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestAuthenticate_ValidTokenExposesClaims(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	claims := &models.JwtClaims{
		UserID:       "u1",
		Role:         "admin",
		Name:         "María López",
		Email:        "maria@example.com",
		Organization: "Tienda de Ropa",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	assert.NoError(t, err)

	app := fiber.New()
	app.Use(Authenticate)
	app.Get("/test", func(c *fiber.Ctx) error {
		got, ok := c.Locals("claims").(*models.JwtClaims)
		assert.True(t, ok)
		assert.Equal(t, "María López", got.Name)
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAuthenticate_RejectsBadToken(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	app := fiber.New()
	app.Use(Authenticate)
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
