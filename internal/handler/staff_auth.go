package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
    "github.com/iliyamo/table-reservation/internal/utils"
)

// StaffStore looks up staff accounts by login email.
type StaffStore interface {
    GetStaffByEmail(ctx context.Context, email string) (model.Staff, error)
}

// StaffAuthHandler issues access tokens to hosts and managers.  There are
// no refresh tokens; a host logs in again when the token expires.
type StaffAuthHandler struct {
    Staff     StaffStore
    JWTSecret string
    TTLMin    int
    Log       logrus.FieldLogger
}

func NewStaffAuthHandler(staff StaffStore, secret string, ttlMin int, log logrus.FieldLogger) *StaffAuthHandler {
    return &StaffAuthHandler{Staff: staff, JWTSecret: secret, TTLMin: ttlMin, Log: log}
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// Login handles POST /v1/staff/login.
func (h *StaffAuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    email := strings.ToLower(strings.TrimSpace(req.Email))
    if email == "" || req.Password == "" {
        return badRequest(c, "email and password are required")
    }

    ctx, cancel := requestCtx(c)
    defer cancel()
    st, err := h.Staff.GetStaffByEmail(ctx, email)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if err != nil {
        return fail(c, h.Log, err)
    }
    if !st.IsActive || !utils.VerifyPassword(st.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    tok, err := utils.NewAccessToken(h.JWTSecret, st.ID, st.Role, h.TTLMin)
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.Log.WithFields(logrus.Fields{"staff_id": st.ID, "role": st.Role}).Info("staff login")
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp,
        "role":         st.Role,
    })
}
