package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragfuse/ragfuse/internal/catalog"
)

func TestCatalogStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{catalog.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("target folder: %w", catalog.ErrNotFound), http.StatusNotFound},
		{catalog.ErrRootFolder, http.StatusBadRequest},
		{catalog.ErrNameRequired, http.StatusBadRequest},
		{catalog.ErrNameTooLong, http.StatusBadRequest},
		{catalog.ErrNameInvalid, http.StatusBadRequest},
		{catalog.ErrDuplicateName, http.StatusBadRequest},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, catalogStatus(tt.err), tt.err.Error())
	}
}
