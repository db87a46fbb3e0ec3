package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/shopeasy/internal/admin"
	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/labstack/echo/v4"
)

const maxImageBytes = 10 << 20

type AdminHTTP struct {
	*Deps
}

type adminPage struct {
	layout
	Draft         admin.Draft
	Editing       bool
	Products      []models.Product
	PendingDelete int
}

func (h *AdminHTTP) controller(c echo.Context, s *session.Store) (*admin.Controller, error) {
	ctx := c.Request().Context()
	api := h.client(s)
	listing, err := h.Catalog.Load(ctx, api)
	if err != nil {
		return nil, err
	}
	return &admin.Controller{
		Form:      h.Forms.Get(s.ID()),
		API:       api,
		Products:  listing,
		Cache:     h.Catalog,
		Events:    h.publisher(),
		SessionID: s.ID(),
	}, nil
}

func (h *AdminHTTP) Page(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.page")
	s := currentSession(c)

	page := adminPage{layout: h.layout(c, s, "Product administration")}
	form := h.Forms.Get(s.ID())
	page.Draft, page.Editing = form.Snapshot()
	page.PendingDelete = form.PendingDelete()

	listing, err := h.Catalog.Load(ctx, h.client(s))
	if err != nil {
		l.Error("admin_list_error", "error", err)
		page.Flashes = append(page.Flashes, Flash{Kind: FlashError, Message: MsgCatalogDown})
	} else {
		page.Products = listing.Products()
	}
	return c.Render(http.StatusOK, "admin.html", page)
}

func (h *AdminHTTP) Edit(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "admin.edit")
	s := currentSession(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}

	ctrl, err := h.controller(c, s)
	if err != nil {
		l.Error("admin_edit_error", "status", http.StatusBadGateway, "error", err)
		h.flash(s, FlashError, MsgCatalogDown)
		return redirect(c, "/admin/produtos")
	}
	if err := ctrl.Edit(id); err != nil {
		l.Warn("admin_edit_error", "status", http.StatusNotFound, "product_id", id)
		h.flash(s, FlashError, admin.MsgNotFound)
	}
	return redirect(c, "/admin/produtos")
}

func (h *AdminHTTP) Cancel(c echo.Context) error {
	s := currentSession(c)
	ctrl := &admin.Controller{Form: h.Forms.Get(s.ID())}
	ctrl.Cancel()
	return redirect(c, "/admin/produtos")
}

func (h *AdminHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.submit")
	s := currentSession(c)

	image, err := readImage(c)
	if err != nil {
		l.Warn("admin_submit_error", "status", http.StatusBadRequest, "error", err)
		h.flash(s, FlashError, admin.MsgSaveFailed)
		return redirect(c, "/admin/produtos")
	}

	ctrl, err := h.controller(c, s)
	if err != nil {
		l.Error("admin_submit_error", "status", http.StatusBadGateway, "error", err)
		h.flash(s, FlashError, MsgCatalogDown)
		return redirect(c, "/admin/produtos")
	}

	ctrl.SetFields(admin.Input{
		Name:        c.FormValue("nome"),
		Price:       c.FormValue("preco"),
		Description: c.FormValue("descricao"),
		ImageURL:    c.FormValue("imagem_url"),
		Stock:       c.FormValue("estoque"),
		Image:       image,
	})

	msg, err := ctrl.Submit(ctx)
	if err != nil {
		if errors.Is(err, admin.ErrValidation) {
			l.Warn("admin_submit_error", "status", http.StatusBadRequest, "error", err)
		}
		h.flash(s, FlashError, msg)
		return redirect(c, "/admin/produtos")
	}
	h.flash(s, FlashInfo, msg)
	return redirect(c, "/admin/produtos")
}

func (h *AdminHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete")
	s := currentSession(c)
	id, err := paramID(c)
	if err != nil {
		return err
	}

	ctrl, err := h.controller(c, s)
	if err != nil {
		l.Error("admin_delete_error", "status", http.StatusBadGateway, "error", err)
		h.flash(s, FlashError, MsgCatalogDown)
		return redirect(c, "/admin/produtos")
	}

	msg, err := ctrl.Delete(ctx, id, c.FormValue("confirm") == "true")
	switch {
	case errors.Is(err, admin.ErrNotConfirmed):
		h.flash(s, FlashInfo, msg)
	case err != nil:
		h.flash(s, FlashError, msg)
	default:
		l.Info("product deleted", "product_id", id)
		h.flash(s, FlashInfo, msg)
	}
	return redirect(c, "/admin/produtos")
}

// readImage returns the uploaded "imagem" file, or nil when none was sent.
func readImage(c echo.Context) (*admin.ImageFile, error) {
	fh, err := c.FormFile("imagem")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if fh.Size > maxImageBytes {
		return nil, fmt.Errorf("image too large: %d bytes", fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &admin.ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
