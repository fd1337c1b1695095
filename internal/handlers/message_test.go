package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JDEditz/Messaging-Web-App/internal/chat"
	"github.com/JDEditz/Messaging-Web-App/internal/mocks"
	"github.com/JDEditz/Messaging-Web-App/internal/models"
	"github.com/JDEditz/Messaging-Web-App/internal/repositories"
	"github.com/JDEditz/Messaging-Web-App/internal/ws"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/api/messages/:id", handler.ListMessages)
	r.POST("/api/messages/:id", handler.SendMessage)
	r.PUT("/api/messages/:id", handler.EditMessage)
	r.DELETE("/api/messages/:id", handler.DeleteMessage)
	return r
}

func newMessageFixture() (*MessageHandler, *mocks.ConversationRepositoryMock, *mocks.MessageRepositoryMock, *mocks.UserRepositoryMock) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	service := chat.NewService(convRepo, msgRepo, userRepo)
	return NewMessageHandler(service, ws.NewHub()), convRepo, msgRepo, userRepo
}

func TestSendMessageSuccess(t *testing.T) {
	handler, convRepo, msgRepo, userRepo := newMessageFixture()
	router := setupMessageRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	msgRepo.On("CreateMessage", mock.Anything, 5, 1, "hi", "text").
		Return(models.Message{ID: 7, ConversationID: 5, SenderID: 1, Content: "hi", Kind: "text"}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1}).
		Return([]models.UserSummary{{ID: 1, Username: "alice"}}, nil).Once()

	body := bytes.NewBufferString(`{"content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages/5", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var view models.MessageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Equal(t, 7, view.ID)
	require.Equal(t, "alice", view.Sender.Username)
	msgRepo.AssertExpectations(t)
}

func TestSendMessageToUnknownConversation(t *testing.T) {
	handler, convRepo, msgRepo, _ := newMessageFixture()
	router := setupMessageRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	body := bytes.NewBufferString(`{"content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages/5", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	msgRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageEmptyBody(t *testing.T) {
	handler, _, _, _ := newMessageFixture()
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/messages/5", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditMessageNotOwner(t *testing.T) {
	handler, _, msgRepo, _ := newMessageFixture()
	router := setupMessageRouter(handler)

	msgRepo.On("UpdateContent", mock.Anything, 7, 1, "new").
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	body := bytes.NewBufferString(`{"content":"new"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/messages/7", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	msgRepo.AssertExpectations(t)
}

func TestDeleteMessageSuccess(t *testing.T) {
	handler, _, msgRepo, _ := newMessageFixture()
	router := setupMessageRouter(handler)

	msgRepo.On("GetMessage", mock.Anything, 7).
		Return(models.Message{ID: 7, ConversationID: 5, SenderID: 1}, nil).Once()
	msgRepo.On("DeleteMessage", mock.Anything, 7, 1).
		Return(models.Message{ID: 7, ConversationID: 5, SenderID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/messages/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	msgRepo.AssertExpectations(t)
}

func TestDeleteMessageNotOwner(t *testing.T) {
	handler, _, msgRepo, _ := newMessageFixture()
	router := setupMessageRouter(handler)

	msgRepo.On("GetMessage", mock.Anything, 7).
		Return(models.Message{ID: 7, ConversationID: 5, SenderID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/messages/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	msgRepo.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesPaginated(t *testing.T) {
	handler, convRepo, msgRepo, userRepo := newMessageFixture()
	router := setupMessageRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	msgRepo.On("ListMessages", mock.Anything, 5, 2, 2).Return([]models.Message{
		{ID: 4, ConversationID: 5, SenderID: 1},
		{ID: 3, ConversationID: 5, SenderID: 1},
	}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1}).
		Return([]models.UserSummary{{ID: 1, Username: "alice"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/messages/5?page=2&limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []models.MessageView `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, 3, resp.Messages[0].ID)
	require.Equal(t, 4, resp.Messages[1].ID)
	msgRepo.AssertExpectations(t)
}
