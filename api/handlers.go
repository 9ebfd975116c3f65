package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"notification-service/domain"
	"notification-service/internal/consts"
	"notification-service/registry"
)

const (
	// notificationBuffer is the per-connection channel depth. A client that
	// cannot drain this many events between flushes starts missing them.
	notificationBuffer = 16

	heartbeatInterval = 30 * time.Second
)

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, reg *registry.Registry, store SummaryStore, auth Authenticator, dueSoonWindow time.Duration, logger *log.Logger) {
	e.GET("/notifications/stream", streamNotifications(reg, auth, logger))
	e.GET("/api/notifications/summary", getSummary(store, auth, dueSoonWindow))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// credentialFromRequest accepts the credential either as a token query
// parameter (EventSource cannot set headers) or as a bearer header.
func credentialFromRequest(c echo.Context) string {
	if token := c.QueryParam("token"); token != "" {
		return token
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// streamNotifications is the push endpoint. The connection is bound to the
// authenticated user's room for its whole lifetime; the deferred unbind runs
// on every exit path, so a closed connection can never linger in the room.
func streamNotifications(reg *registry.Registry, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromCredential(credentialFromRequest(c))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		connID := uuid.NewString()
		ch := make(chan domain.Notification, notificationBuffer)
		reg.Bind(userID, ch)
		defer reg.Unbind(ch)
		logger.WithFields(log.Fields{"connection": connID, "user": userID}).Info("push connection bound")
		defer logger.WithFields(log.Fields{"connection": connID, "user": userID}).Info("push connection closed")

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-heartbeat.C:
				if _, err := c.Response().Write([]byte(consts.SSEHeartbeat)); err != nil {
					return nil
				}
				flusher.Flush()
			case n := <-ch:
				if err := writeEvent(c.Response(), n); err != nil {
					logger.WithFields(log.Fields{"connection": connID, "user": userID}).Errorf("write event: %v", err)
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w *echo.Response, n domain.Notification) error {
	data, err := sonic.Marshal(n.Task)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(consts.SSEEventPrefix + n.Kind + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(consts.SSEDataPrefix)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

func getSummary(store SummaryStore, auth Authenticator, dueSoonWindow time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromCredential(credentialFromRequest(c))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		summary, err := store.CountDue(c.Request().Context(), userID, time.Now().UTC(), dueSoonWindow)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, summary)
	}
}
