package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/internal/dispatch"
	"farmlink/internal/models"
	"farmlink/internal/orders"
)

func TestRespondDispatchErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			"loser of an accept race gets a conflict",
			dispatch.AlreadyAssignedError{OrderID: primitive.NewObjectID(), DriverID: primitive.NewObjectID()},
			http.StatusConflict,
		},
		{
			"busy driver gets a conflict",
			dispatch.ErrDriverUnavailable,
			http.StatusConflict,
		},
		{
			"action on someone else's order is forbidden",
			dispatch.ErrNotAssigned,
			http.StatusForbidden,
		},
		{
			"unknown order is not found",
			mongo.ErrNoDocuments,
			http.StatusNotFound,
		},
		{
			"partial dispatch effect is a server error",
			dispatch.InconsistencyError{OrderID: primitive.NewObjectID(), DriverID: primitive.NewObjectID()},
			http.StatusInternalServerError,
		},
		{
			"state machine rejection falls through to transition mapping",
			orders.InvalidTransitionError{Current: models.OrderPending, Requested: models.OrderOutForDelivery},
			http.StatusConflict,
		},
	}

	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)

		respondDispatchError(c, "TEST", tc.err)

		if recorder.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, recorder.Code)
		}
	}
}
