package storefront

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/device"
	"github.com/odyssey-erp/storefront/internal/shared"
	"github.com/odyssey-erp/storefront/internal/view"
)

type sortLink struct {
	Label  string
	URL    string
	Active bool
	Dir    catalog.SortDir
}

type listPage struct {
	Products  []catalog.Product
	Search    string
	Sort      catalog.Sort
	SortLinks []sortLink
	// FilterCSS is the orientation-driven image style shared by every card.
	FilterCSS string
}

// formValues holds raw form input so a rejected form re-renders exactly as typed.
type formValues struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	ImageURL    string
	Version     int64
}

type formPage struct {
	Heading string
	Action  string
	Submit  string
	Values  formValues
	Errors  map[string]string
}

type savedPage struct {
	Product catalog.Product
	Created bool
}

type missingPage struct {
	ID string
}

type deletePage struct {
	Product catalog.Product
}

var sortLabels = []struct {
	field catalog.SortField
	label string
}{
	{catalog.SortByName, "Name"},
	{catalog.SortByPrice, "Price"},
	{catalog.SortByQuantity, "Stock"},
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Sort:   catalog.ParseSort(r.URL.Query().Get("sort"), r.URL.Query().Get("dir")),
	}
	products, err := h.Catalog.List(r.Context(), q)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	page := listPage{
		Products:  products,
		Search:    q.Search,
		Sort:      q.Sort,
		SortLinks: sortLinks(q),
	}
	if h.Env != nil {
		page.FilterCSS = device.ImageFilter(h.Env.Orientation()).CSS()
	}
	h.render(w, r, http.StatusOK, "pages/products.html", "Products", nil, page)
}

func sortLinks(q catalog.Query) []sortLink {
	links := make([]sortLink, 0, len(sortLabels))
	for _, s := range sortLabels {
		next := q.Sort.Toggle(s.field)
		v := url.Values{}
		if q.Search != "" {
			v.Set("q", q.Search)
		}
		v.Set("sort", string(next.Field))
		v.Set("dir", string(next.Dir))
		links = append(links, sortLink{
			Label:  s.label,
			URL:    "/products?" + v.Encode(),
			Active: q.Sort.Field == s.field,
			Dir:    q.Sort.Dir,
		})
	}
	return links
}

func (h *Handler) newProduct(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, newForm(formValues{}, nil), nil)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, values, fieldErrs := parseProductForm(r)
	if len(fieldErrs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, newForm(values, withRuleErrors(in, fieldErrs)), nil)
		return
	}
	created, err := h.Catalog.Create(r.Context(), in)
	if errors.Is(err, shared.ErrValidation) {
		h.renderForm(w, r, http.StatusUnprocessableEntity, newForm(values, shared.FieldErrors(err)), nil)
		return
	}
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	h.renderSaved(w, r, created, true)
}

func (h *Handler) editProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		h.renderMissing(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, "load product", err)
		return
	}
	h.renderForm(w, r, http.StatusOK, editForm(id, valuesFrom(p), nil), nil)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	in, values, fieldErrs := parseProductForm(r)
	if len(fieldErrs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, editForm(id, values, withRuleErrors(in, fieldErrs)), nil)
		return
	}
	updated, err := h.Catalog.Update(r.Context(), id, in)
	switch {
	case err == nil:
		h.renderSaved(w, r, updated, false)
	case errors.Is(err, shared.ErrNotFound):
		h.renderMissing(w, r)
	case errors.Is(err, shared.ErrValidation):
		h.renderForm(w, r, http.StatusUnprocessableEntity, editForm(id, values, shared.FieldErrors(err)), nil)
	case errors.Is(err, shared.ErrConflict):
		// Keep what the user typed but move to the stored version so a resubmit wins.
		if current, getErr := h.Catalog.Get(r.Context(), id); getErr == nil {
			values.Version = current.Version
		}
		h.renderForm(w, r, http.StatusConflict, editForm(id, values, nil), &view.Flash{
			Kind:    "warning",
			Message: "This product was changed while you were editing. Save again to overwrite it.",
		})
	default:
		h.fail(w, r, "update product", err)
	}
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		h.renderMissing(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, "load product", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/product_delete.html", "Delete "+p.Name, nil, deletePage{Product: p})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	confirmed := r.PostFormValue("confirm") == "yes"
	if !confirmed {
		p, err := h.Catalog.Get(r.Context(), id)
		if errors.Is(err, shared.ErrNotFound) {
			h.renderMissing(w, r)
			return
		}
		if err != nil {
			h.fail(w, r, "load product", err)
			return
		}
		h.render(w, r, http.StatusPreconditionRequired, "pages/product_delete.html", "Delete "+p.Name,
			&view.Flash{Kind: "warning", Message: "Please confirm the deletion."}, deletePage{Product: p})
		return
	}
	if err := h.Catalog.Delete(r.Context(), id, true); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	seeOther(w, r, "/products?notice=deleted")
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if _, err := h.Cart.AddOrIncrement(r.Context(), id); err != nil {
		h.fail(w, r, "add to cart", err)
		return
	}
	back := "/products?notice=added"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path == "/products" {
		q := ref.Query()
		q.Set("notice", "added")
		back = "/products?" + q.Encode()
	}
	seeOther(w, r, back)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, page formPage, flash *view.Flash) {
	h.render(w, r, status, "pages/product_form.html", page.Heading, flash, page)
}

func (h *Handler) renderSaved(w http.ResponseWriter, r *http.Request, p catalog.Product, created bool) {
	h.renderPage(w, r, http.StatusOK, "pages/product_saved.html", view.TemplateData{
		Title:   "Saved",
		Flash:   &view.Flash{Kind: "success", Message: "Saved " + p.Name + "."},
		Refresh: &view.Refresh{URL: "/products", Delay: h.RedirectDelay},
		Data:    savedPage{Product: p, Created: created},
	})
}

func (h *Handler) renderMissing(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "pages/product_missing.html", "Product not found", nil,
		missingPage{ID: chi.URLParam(r, "id")})
}

// productID reads the {id} path parameter. Anything that is not a positive integer can
// never name a product, so it gets the not-found screen.
func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderMissing(w, r)
		return 0, false
	}
	return id, true
}

func newForm(values formValues, errs map[string]string) formPage {
	return formPage{Heading: "New product", Action: "/products", Submit: "Create", Values: values, Errors: errs}
}

func editForm(id int64, values formValues, errs map[string]string) formPage {
	return formPage{
		Heading: "Edit product",
		Action:  "/products/" + strconv.FormatInt(id, 10),
		Submit:  "Save",
		Values:  values,
		Errors:  errs,
	}
}

func valuesFrom(p catalog.Product) formValues {
	return formValues{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Quantity:    strconv.FormatInt(p.Quantity, 10),
		ImageURL:    p.ImageURL,
		Version:     p.Version,
	}
}

// parseProductForm converts the posted form. Values that cannot be parsed are reported as
// field errors and left unset in the input.
func parseProductForm(r *http.Request) (catalog.ProductInput, formValues, map[string]string) {
	v := formValues{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Price:       r.PostFormValue("price"),
		Quantity:    r.PostFormValue("quantity"),
		ImageURL:    r.PostFormValue("image_url"),
	}
	in := catalog.ProductInput{Name: v.Name, Description: v.Description, ImageURL: v.ImageURL}
	errs := map[string]string{}
	if s := strings.TrimSpace(v.Price); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			errs["price"] = "must be a number"
		} else {
			in.Price = d
		}
	}
	if s := strings.TrimSpace(v.Quantity); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			errs["quantity"] = "must be a whole number"
		} else {
			in.Quantity = &n
		}
	}
	if n, err := strconv.ParseInt(r.PostFormValue("version"), 10, 64); err == nil {
		in.Version = n
		v.Version = n
	}
	return in, v, errs
}

// withRuleErrors adds the validation rule failures for fields that parsed fine.
func withRuleErrors(in catalog.ProductInput, parseErrs map[string]string) map[string]string {
	out := shared.FieldErrors(catalog.Validate(in))
	if out == nil {
		out = map[string]string{}
	}
	for k, v := range parseErrs {
		out[k] = v
	}
	return out
}
