package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "fmt"      // fmt renders numeric subject claims as strings
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// Context keys set by JWTAuth.
const (
    CtxStaffID = "staff_id"
    CtxRole    = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued at staff login and injects the token's subject and role claims
// into the request context under CtxStaffID and CtxRole.  The provided
// secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC signatures are accepted; anything else is rejected
            // before the key is handed out.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            // sub is written as a number and decoded as float64.
            switch sub := claims["sub"].(type) {
            case float64:
                c.Set(CtxStaffID, fmt.Sprintf("%.0f", sub))
            case string:
                c.Set(CtxStaffID, sub)
            }
            c.Set(CtxRole, claims["role"])
            return next(c)
        }
    }
}
