package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"book-service/internal/entity"
	"book-service/internal/service"
)

var (
	errInvalidPayload = echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	errInvalidID      = echo.NewHTTPError(http.StatusBadRequest, "Invalid book ID")
)

// BookHandler handles /books requests. Every route sits behind the request gate.
type BookHandler struct {
	bookService *service.BookService
}

// NewBookHandler creates a new BookHandler instance.
func NewBookHandler(bookService *service.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

func (h *BookHandler) CreateBook(c echo.Context) error {
	var in entity.BookInput
	if err := c.Bind(&in); err != nil {
		return errInvalidPayload
	}

	book, err := h.bookService.CreateBook(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) ListBooks(c echo.Context) error {
	books, err := h.bookService.ListBooks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, books)
}

func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.GetBook(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) UpdateBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	var in entity.BookInput
	if err := c.Bind(&in); err != nil {
		return errInvalidPayload
	}

	book, err := h.bookService.UpdateBook(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}

	if err := h.bookService.DeleteBook(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func bookID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// UserHandler handles registration and login.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUser accepts JSON or form encoded credentials. The response never includes the hash.
func (h *UserHandler) CreateUser(c echo.Context) error {
	var creds entity.Credentials
	if err := c.Bind(&creds); err != nil {
		return errInvalidPayload
	}

	user, err := h.userService.Register(c.Request().Context(), creds)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Login(c echo.Context) error {
	var creds entity.Credentials
	if err := c.Bind(&creds); err != nil {
		return errInvalidPayload
	}

	token, err := h.userService.Login(c.Request().Context(), creds)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}
