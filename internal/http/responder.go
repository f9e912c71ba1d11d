package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidListingKind  = errors.New("種別には house または museum を指定してください。")
	errInvalidFilterValue  = errors.New("絞り込み条件の数値が正しくありません。")
	errMissingSessionToken = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *logrus.Logger
}

func newResponder(logger *logrus.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(c *gin.Context, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func (r responder) writeError(c *gin.Context, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(c).WithError(err).WithField("status", status).Error("request failed")
	}

	r.writeJSON(c, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(c *gin.Context, err error) {
	if err == nil {
		r.writeError(c, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(c, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(c, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "メールアドレスまたはパスワードが正しくありません",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(c, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrNoListingSelected):
		r.writeJSON(c, http.StatusBadRequest, errorResponse{
			ErrorCode: "NO_LISTING_SELECTED",
			Message:   "予約する物件が選択されていません。",
		})
	case errors.Is(err, application.ErrDraftNotFound):
		r.writeJSON(c, http.StatusNotFound, errorResponse{
			ErrorCode: "DRAFT_NOT_FOUND",
			Message:   "確認待ちの予約が見つかりません。",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(c, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "このメールアドレスは既に登録されています。",
		})
	case errors.Is(err, application.ErrConfirmationRequired):
		r.writeJSON(c, http.StatusConflict, errorResponse{
			ErrorCode: "CONFIRMATION_REQUIRED",
			Message:   "削除するには確認が必要です。",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(c, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(c).WithError(err).WithField("error_kind", application.ErrorKind(err)).Error("unhandled service error")
		r.writeJSON(c, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(c *gin.Context) *logrus.Entry {
	return handlerLogger(c.Request.Context(), r.logger, "responder", "", nil)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "password is required":
		return "パスワードは必須です。"
	case "password must be at least 8 characters":
		return "パスワードは 8 文字以上で指定してください。"
	case "name is required":
		return "氏名は必須です。"
	case "contact is required":
		return "連絡先は必須です。"
	case "date is required":
		return "来訪日は必須です。"
	case "date must be YYYY-MM-DD":
		return "来訪日は YYYY-MM-DD 形式で指定してください。"
	case "date must not be in the past":
		return "来訪日に過去の日付は指定できません。"
	case "listing is required":
		return "予約する物件を指定してください。"
	case "only one of houseId or museumId may be set":
		return "houseId と museumId はどちらか一方のみ指定してください。"
	case "house not found":
		return "指定された物件は存在しません。"
	case "museum not found":
		return "指定された美術館は存在しません。"
	case "status must be one of: approved declined":
		return "ステータスには approved または declined を指定してください。"
	case "kind is required", "kind must be one of: house museum":
		return "種別には house または museum を指定してください。"
	case "title is required":
		return "タイトルは必須です。"
	case "description is required":
		return "説明は必須です。"
	case "address is required":
		return "住所は必須です。"
	case "city is required":
		return "市区町村は必須です。"
	case "price is required":
		return "価格は必須です。"
	case "price must be at least 0":
		return "価格は 0 以上で指定してください。"
	case "size is required":
		return "面積は必須です。"
	case "size must be at least 0":
		return "面積は 0 以上で指定してください。"
	case "lat and lng must be provided together":
		return "緯度と経度は両方指定してください。"
	default:
		if strings.HasPrefix(message, "lat must be") {
			return "緯度は -90 から 90 の範囲で指定してください。"
		}
		if strings.HasPrefix(message, "lng must be") {
			return "経度は -180 から 180 の範囲で指定してください。"
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
