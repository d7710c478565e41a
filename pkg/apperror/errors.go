package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Message carries
// the English text, MessageVI the Vietnamese localisation; both are safe for
// end users. Err wraps the internal cause and is never exposed to clients.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	MessageVI  string `json:"message_vi,omitempty"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message, messageVI string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		MessageVI:  messageVI,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code, message, messageVI string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		MessageVI:  messageVI,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New("VAL_001", message, "Dữ liệu không hợp lệ", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Invalid amount", "Số tiền không hợp lệ", http.StatusBadRequest)
}

// ---- Orders (ORD) ----

func ErrProductNotFound() *AppError {
	return New("ORD_001", "Product not found", "Không tìm thấy sản phẩm", http.StatusNotFound)
}

func ErrInsufficientStock() *AppError {
	return New("ORD_002", "Insufficient stock", "Không đủ hàng trong kho", http.StatusConflict)
}

func ErrInvalidStatusTransition(from, to string) *AppError {
	return New("ORD_003",
		fmt.Sprintf("Invalid order status transition %s -> %s", from, to),
		"Chuyển trạng thái đơn hàng không hợp lệ", http.StatusUnprocessableEntity)
}

func ErrOrderNotFound() *AppError {
	return New("ORD_004", "Order not found", "Không tìm thấy đơn hàng", http.StatusNotFound)
}

// ---- Wallet (WAL) ----

func ErrInsufficientBalance() *AppError {
	return New("WAL_001", "Insufficient balance in wallet", "Số dư ví không đủ", http.StatusPaymentRequired)
}

func ErrDailyLimitExceeded() *AppError {
	return New("WAL_002", "Daily withdrawal limit exceeded", "Vượt hạn mức rút tiền trong ngày", http.StatusUnprocessableEntity)
}

func ErrSingleTransactionLimitExceeded() *AppError {
	return New("WAL_003", "Single transaction limit exceeded", "Vượt hạn mức một giao dịch", http.StatusUnprocessableEntity)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_004", "Wallet not found", "Không tìm thấy ví", http.StatusNotFound)
}

// ErrConcurrencyConflict signals an optimistic-lock loss. Safe to retry the
// whole operation with the same idempotency key.
func ErrConcurrencyConflict() *AppError {
	e := New("WAL_005", "Concurrent update conflict, please retry", "Xung đột cập nhật đồng thời, vui lòng thử lại", http.StatusConflict)
	e.Retryable = true
	return e
}

// ---- Escrow (ESC) ----

func ErrEscrowNotFound() *AppError {
	return New("ESC_001", "Escrow not found", "Không tìm thấy ký quỹ", http.StatusNotFound)
}

func ErrEscrowAlreadySettled() *AppError {
	return New("ESC_002", "Escrow already settled", "Ký quỹ đã được tất toán", http.StatusConflict)
}

// ---- Identity (SEC) ----

func ErrInvalidToken() *AppError {
	return New("SEC_001", "Invalid or expired identity token", "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("SEC_002", "Access denied", "Không có quyền truy cập", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorage wraps a transaction/connection failure. Retryable a bounded
// number of times by the caller.
func ErrStorage(err error) *AppError {
	e := Wrap("SYS_001", "Internal storage error", "Lỗi hệ thống lưu trữ", http.StatusInternalServerError, err)
	e.Retryable = true
	return e
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", "Lỗi hệ thống", http.StatusInternalServerError, err)
}
