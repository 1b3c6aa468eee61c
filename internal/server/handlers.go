package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/chimeria/internal/assistant"
	"github.com/nao1215/chimeria/internal/store"
	"github.com/nao1215/chimeria/pkg/middleware"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// upload は検証済みのアップロード画像。
type upload struct {
	data     []byte
	filename string
	mimeType string
}

// handleAsk は乗組員の質問を受け付けるハンドラを返す。
// 画像が添付されていれば保存してから生成AIに問い合わせ、
// 質問と応答を会話履歴に追記する。
func (s *Server) handleAsk() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes+formOverhead)
		if err := c.Request.ParseMultipartForm(s.maxUploadBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusBadRequest, errorResponse{Error: s.tooLargeMessage()})
				return
			}
			c.JSON(http.StatusBadRequest, errorResponse{Error: "multipart/form-data形式で送信してください"})
			return
		}
		defer func() { _ = c.Request.MultipartForm.RemoveAll() }()

		// 空文字は未指定と同じ扱いにする。それ以外は空白も含めてそのまま保存する。
		question := c.Request.PostFormValue("question")
		if question == "" {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "questionは必須です"})
			return
		}

		up, status, err := s.readUpload(c)
		if err != nil {
			c.JSON(status, errorResponse{Error: err.Error()})
			return
		}

		q := assistant.Question{Text: question}
		var imagePath string
		if up != nil {
			imagePath, err = s.attachments.Save(ctx, up.data, userID, up.filename)
			if err != nil {
				s.logger.ErrorContext(ctx, "添付画像の保存に失敗", "user_id", userID, "error", err)
				c.JSON(http.StatusInternalServerError, errorResponse{Error: "画像の保存に失敗しました"})
				return
			}
			q.Image = up.data
			q.MIMEType = up.mimeType
		}

		reply, err := s.assistant.Ask(ctx, q)
		if err != nil {
			s.logger.ErrorContext(ctx, "生成AIへの問い合わせに失敗", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "応答の生成に失敗しました"})
			return
		}

		if _, err := s.store.CreateMessage(ctx, store.Message{
			UserID:  userID,
			Content: question,
			Image:   imagePath,
			Role:    store.RoleUser,
		}); err != nil {
			s.logger.ErrorContext(ctx, "質問の保存に失敗", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "会話履歴の保存に失敗しました"})
			return
		}
		if _, err := s.store.CreateMessage(ctx, store.Message{
			UserID:  userID,
			Content: reply,
			Role:    store.RoleAssistant,
		}); err != nil {
			s.logger.ErrorContext(ctx, "応答の保存に失敗", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "会話履歴の保存に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, askResponse{Content: reply, Role: string(store.RoleAssistant)})
	}
}

// readUpload はフォームの "file" を読み込み、画像として解釈できるか検証する。
// ファイルが無い場合はnilを返す。
func (s *Server) readUpload(c *gin.Context) (*upload, int, error) {
	file, header, err := c.Request.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("ファイルの取得に失敗しました")
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		return nil, http.StatusBadRequest, errors.New(s.tooLargeMessage())
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("ファイルの読み込みに失敗しました")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("画像ファイルとして解釈できません")
	}

	return &upload{
		data:     data,
		filename: uploadFilename(header, format),
		mimeType: "image/" + format,
	}, 0, nil
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("ファイルサイズが上限を超えています（最大%dMB）", s.maxUploadBytes/(1<<20))
}

// uploadFilename は保存時の拡張子の元になるファイル名を返す。
// クライアントがファイル名を送らなかった場合は画像形式から補う。
func uploadFilename(header *multipart.FileHeader, format string) string {
	if header.Filename != "" {
		return header.Filename
	}
	return "image." + format
}

// handleProfile は認証済みユーザーのプロフィールを返すハンドラを返す。
func (s *Server) handleProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)

		user, err := s.store.FindUserByID(ctx, userID)
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "プロフィールが見つかりません"})
			return
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "プロフィールの取得に失敗", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "プロフィールの取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, profileResponse{Email: user.Email, Name: user.Name})
	}
}

// handleMessages は認証済みユーザーの会話履歴を古い順に返すハンドラを返す。
// 添付画像のデータURL化は並行して行い、並び順は保つ。
func (s *Server) handleMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)

		messages, err := s.store.ListMessagesByUser(ctx, userID)
		if err != nil {
			s.logger.ErrorContext(ctx, "会話履歴の取得に失敗", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "会話履歴の取得に失敗しました"})
			return
		}

		result := make([]messageResponse, len(messages))
		var g errgroup.Group
		g.SetLimit(historyConcurrency)
		for i, m := range messages {
			result[i] = messageResponse{Content: m.Content, Role: string(m.Role)}
			if m.Image == "" {
				continue
			}
			g.Go(func() error {
				if dataURL, ok := s.attachments.InlineView(ctx, m.Image); ok {
					result[i].Image = &dataURL
				}
				return nil
			})
		}
		// InlineViewは失敗を返さないためWaitは常にnil
		_ = g.Wait()

		c.JSON(http.StatusOK, result)
	}
}
