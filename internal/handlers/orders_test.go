package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/orders"
)

func TestRespondTransitionErrorInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	respondTransitionError(c, "TEST", orders.InvalidTransitionError{
		Current:   models.OrderCancelled,
		Requested: models.OrderConfirmed,
	})

	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("response was not JSON: %v", err)
	}
	if body["currentStatus"] != "cancelled" {
		t.Fatalf("expected currentStatus=cancelled so the client can explain why, got %v", body["currentStatus"])
	}
}

func TestRespondTransitionErrorUnauthorizedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	respondTransitionError(c, "TEST", orders.UnauthorizedRoleError{
		Role:      models.RoleBuyer,
		Requested: models.OrderConfirmed,
	})

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestRespondTransitionErrorNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	respondTransitionError(c, "TEST", mongo.ErrNoDocuments)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestIssueTokenRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID()
	secret := "test-secret"

	token, err := issueToken(userID, "farmer@example.com", models.RoleFarmer, secret, time.Minute)
	if err != nil {
		t.Fatalf("issueToken returned error: %v", err)
	}

	parsedID, role, err := middleware.ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if parsedID != userID {
		t.Fatalf("expected userId %s, got %s", userID.Hex(), parsedID.Hex())
	}
	if role != models.RoleFarmer {
		t.Fatalf("expected role farmer, got %s", role)
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	userID := primitive.NewObjectID()
	secret := "test-secret"

	token, err := issueToken(userID, "x@example.com", models.Role("admin"), secret, time.Minute)
	if err != nil {
		t.Fatalf("issueToken returned error: %v", err)
	}

	if _, _, err := middleware.ParseToken(token, secret); err == nil {
		t.Fatal("expected token with unknown role to be rejected")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := issueToken(primitive.NewObjectID(), "x@example.com", models.RoleBuyer, "secret-a", time.Minute)
	if err != nil {
		t.Fatalf("issueToken returned error: %v", err)
	}

	if _, _, err := middleware.ParseToken(token, "secret-b"); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}
