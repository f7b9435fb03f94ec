package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/wizard"
)

type wizardView struct {
	ID       string              `json:"id"`
	State    wizard.State        `json:"state"`
	Metadata model.BatchMetadata `json:"metadata"`
	Items    []draft.Item        `json:"items"`
	Entries  []catalog.Entry     `json:"entries,omitempty"`
}

func viewOf(id string, m *wizard.Machine, withCatalog bool) wizardView {
	meta, items := m.Draft()
	v := wizardView{ID: id, State: m.State(), Metadata: meta, Items: items}
	if withCatalog {
		v.Entries = m.Catalog().Entries()
	}
	return v
}

// itemUpdate edits one field of one item. Key is either a storage key or a
// pair entry key; Value is a bool, a string or number, or a two-element array
// for pair entries.
type itemUpdate struct {
	Key   string          `json:"key" binding:"required"`
	Value json.RawMessage `json:"value"`
}

func (s *Server) lookupWizard(c *gin.Context) (*wizard.Machine, bool) {
	m, ok := s.wizards.get(c.Param("id"))
	if !ok {
		abort(c, fmt.Errorf("wizard %s: %w", c.Param("id"), model.ErrNotFound))
	}
	return m, ok
}

func (s *Server) createWizard(c *gin.Context) {
	m, err := s.app.NewWizard()
	if err != nil {
		abort(c, err)
		return
	}
	id := s.wizards.add(m)
	c.JSON(http.StatusCreated, viewOf(id, m, true))
}

func (s *Server) getWizard(c *gin.Context) {
	if m, ok := s.lookupWizard(c); ok {
		c.JSON(http.StatusOK, viewOf(c.Param("id"), m, true))
	}
}

func (s *Server) deleteWizard(c *gin.Context) {
	if !s.wizards.remove(c.Param("id")) {
		abort(c, fmt.Errorf("wizard %s: %w", c.Param("id"), model.ErrNotFound))
		return
	}
	c.Status(http.StatusNoContent)
}

// setMetadata applies a partial object of metadata fields keyed by their
// document keys. Unknown keys reject the whole request.
func (s *Server) setMetadata(c *gin.Context) {
	m, ok := s.lookupWizard(c)
	if !ok {
		return
	}
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	var unknown []string
	for k := range body {
		if !slices.Contains(model.MetadataFields, model.MetadataField(k)) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		abort(c, model.NewValidationError(model.ErrUnknownField, unknown...))
		return
	}

	for _, f := range model.MetadataFields {
		v, ok := body[string(f)]
		if !ok {
			continue
		}
		if err := m.SetMetadata(f, v); err != nil {
			abort(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, viewOf(c.Param("id"), m, false))
}

func (s *Server) next(c *gin.Context) {
	m, ok := s.lookupWizard(c)
	if !ok {
		return
	}
	if _, err := m.Next(); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(c.Param("id"), m, false))
}

func (s *Server) back(c *gin.Context) {
	m, ok := s.lookupWizard(c)
	if !ok {
		return
	}
	if _, err := m.Back(); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(c.Param("id"), m, false))
}

func (s *Server) updateItem(c *gin.Context) {
	m, ok := s.lookupWizard(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, fmt.Errorf("item index %q: %w", c.Param("index"), err))
		return
	}
	var req itemUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	u, err := toUpdate(m.Catalog(), req)
	if err != nil {
		abort(c, err)
		return
	}
	if err := m.Update(index, u); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(c.Param("id"), m, false))
}

func (s *Server) submitWizard(c *gin.Context) {
	m, ok := s.lookupWizard(c)
	if !ok {
		return
	}
	id, err := m.Submit(c.Request.Context(), s.app.Records())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"batchId": id, "wizard": viewOf(c.Param("id"), m, false)})
}

// toUpdate picks the draft update variant from the catalog kind of the key
func toUpdate(cat *catalog.Catalog, req itemUpdate) (draft.Update, error) {
	invalid := func() error { return model.NewValidationError(model.ErrInvalidValue, req.Key) }

	if e, _, ok := cat.EntryByKey(req.Key); ok && e.Kind.IsPair() {
		// Both halves are required so a short array cannot blank the other one
		var pair []json.RawMessage
		if err := json.Unmarshal(req.Value, &pair); err != nil || len(pair) != 2 {
			return nil, invalid()
		}
		if e.Kind == catalog.BooleanPair {
			var first, second bool
			if json.Unmarshal(pair[0], &first) != nil || json.Unmarshal(pair[1], &second) != nil {
				return nil, invalid()
			}
			return draft.SetBooleanPair{Key: req.Key, First: first, Second: second}, nil
		}
		first, err1 := scalarText(pair[0])
		second, err2 := scalarText(pair[1])
		if err1 != nil || err2 != nil {
			return nil, invalid()
		}
		return draft.SetNumericPair{Key: req.Key, First: first, Second: second}, nil
	}

	f, ok := cat.Lookup(req.Key)
	if !ok {
		return nil, model.NewValidationError(model.ErrUnknownField, req.Key)
	}
	if f.Kind == catalog.Boolean {
		var v bool
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, invalid()
		}
		return draft.SetFlag{Key: req.Key, Value: v}, nil
	}
	v, err := scalarText(req.Value)
	if err != nil {
		return nil, invalid()
	}
	return draft.SetSingle{Key: req.Key, Value: v}, nil
}

// scalarText accepts a JSON string, number or null and returns its text
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
