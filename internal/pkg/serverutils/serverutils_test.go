package serverutils

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	UserInput string `validate:"required"`
	Level     string `validate:"omitempty,oneof=info error"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{UserInput: "hi"}))

	err := ValidateRequest(sampleRequest{Level: "loud"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "is required", vErr.Fields["user_input"])
	assert.Equal(t, "must be one of: info error", vErr.Fields["level"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/validation", func(c *fiber.Ctx) error { return ValidateRequest(sampleRequest{}) })
	app.Get("/notfound", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "nope") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	for path, want := range map[string]int{"/validation": 400, "/notfound": 404, "/boom": 500} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/secure", JwtMiddleware("secret"), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"garbage", "Bearer abc", fiber.StatusUnauthorized},
		{"valid", "Bearer " + signed, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
