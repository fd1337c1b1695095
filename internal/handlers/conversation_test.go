package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JDEditz/Messaging-Web-App/internal/chat"
	"github.com/JDEditz/Messaging-Web-App/internal/mocks"
	"github.com/JDEditz/Messaging-Web-App/internal/models"
	"github.com/JDEditz/Messaging-Web-App/internal/repositories"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/api/chats", handler.ListConversations)
	r.POST("/api/chats", handler.CreateConversation)
	r.GET("/api/chats/:chat_id", handler.GetConversation)
	r.DELETE("/api/chats/:chat_id", handler.DeleteConversation)
	r.POST("/api/chats/:chat_id/leave", handler.LeaveConversation)
	return r
}

func newConversationFixture() (*ConversationHandler, *mocks.ConversationRepositoryMock, *mocks.MessageRepositoryMock, *mocks.UserRepositoryMock) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	service := chat.NewService(convRepo, msgRepo, userRepo)
	return NewConversationHandler(service, nil), convRepo, msgRepo, userRepo
}

func TestListConversationsSuccess(t *testing.T) {
	handler, convRepo, _, userRepo := newConversationFixture()
	router := setupConversationRouter(handler)

	convRepo.On("ListConversationsForUser", mock.Anything, 1).
		Return([]models.Conversation{{ID: 3}}, nil).Once()
	convRepo.On("ListParticipantIDs", mock.Anything, 3).Return([]int{1, 2}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1, 2}).
		Return([]models.UserSummary{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	convRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateDirectConversationConflict(t *testing.T) {
	handler, convRepo, _, _ := newConversationFixture()
	router := setupConversationRouter(handler)

	convRepo.On("CreateConversation", mock.Anything, false, (*string)(nil), []int{1, 2}).
		Return(models.Conversation{}, repositories.ErrDuplicateDirect).Once()

	body := bytes.NewBufferString(`{"participant_ids":[2],"is_group":false}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestCreateDirectConversationWithTooManyParticipants(t *testing.T) {
	handler, convRepo, _, _ := newConversationFixture()
	router := setupConversationRouter(handler)

	body := bytes.NewBufferString(`{"participant_ids":[2,3],"is_group":false}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupConversationSuccess(t *testing.T) {
	handler, convRepo, _, userRepo := newConversationFixture()
	router := setupConversationRouter(handler)

	name := "team"
	convRepo.On("CreateConversation", mock.Anything, true, &name, []int{1, 2, 3}).
		Return(models.Conversation{ID: 9, IsGroup: true, Name: &name}, nil).Once()
	convRepo.On("ListParticipantIDs", mock.Anything, 9).Return([]int{1, 2, 3}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1, 2, 3}).
		Return([]models.UserSummary{{ID: 1}, {ID: 2}, {ID: 3}}, nil).Once()

	body := bytes.NewBufferString(`{"participant_ids":[2,3],"name":"team","is_group":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestGetConversationNotParticipant(t *testing.T) {
	handler, convRepo, _, _ := newConversationFixture()
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5}, nil).Once()
	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConversationInvalidID(t *testing.T) {
	handler, _, _, _ := newConversationFixture()
	router := setupConversationRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/chats/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaveDirectConversationRejected(t *testing.T) {
	handler, convRepo, _, _ := newConversationFixture()
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5, IsGroup: false}, nil).Once()
	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/chats/5/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteConversationSuccess(t *testing.T) {
	handler, convRepo, _, _ := newConversationFixture()
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5, IsGroup: true}, nil).Once()
	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	convRepo.On("DeleteConversation", mock.Anything, 5).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/chats/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted")
	convRepo.AssertExpectations(t)
}
