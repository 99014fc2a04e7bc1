package recordstore

import (
	"testing"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestMergeExports(t *testing.T) {
	master := []model.BusinessRecord{
		{Name: "Joe's Plumbing", Subdomain: "joes-plumbing.gowso.online"},
	}
	inactive := []model.BusinessRecord{
		{Name: "Closed Co", Subdomain: "closed-co"},
	}
	first := []model.BusinessRecord{
		{Name: "Joe's Plumbing Again", Subdomain: "JOES-PLUMBING"},
		{Name: "Closed Co", Subdomain: "closed-co.gowso.online"},
		{Name: "Acme Drains"},
		{Name: "!!!"},
	}
	second := []model.BusinessRecord{
		{Name: "Acme Drains LLC", Subdomain: "acme-drains"},
		{Name: "Bright Sparks", Subdomain: "bright-sparks.gowso.online"},
	}

	added, stats := MergeExports(master, inactive, first, second)

	assert.Equal(t, []model.BusinessRecord{
		{Name: "Acme Drains", Subdomain: "acme-drains"},
		{Name: "Bright Sparks", Subdomain: "bright-sparks.gowso.online"},
	}, added)
	assert.Equal(t, MergeStats{Read: 6, Unnamed: 1, Inactive: 1, Duplicates: 2, Added: 2}, stats)
}

func TestMergeExportsNothingNew(t *testing.T) {
	added, stats := MergeExports(nil, nil)
	assert.Empty(t, added)
	assert.Zero(t, stats)
}

func TestMatchPrefersSubdomain(t *testing.T) {
	records := []model.BusinessRecord{
		{ID: "by-name", Name: "Blue Sky"},
		{ID: "by-subdomain", Name: "Other", Subdomain: "blue-sky.gowso.online"},
	}

	rec, ok := Match(records, "Blue-Sky")
	assert.True(t, ok)
	assert.Equal(t, "by-subdomain", rec.ID)

	rec, ok = Match(records, "blue sky")
	assert.True(t, ok)
	assert.Equal(t, "by-name", rec.ID)

	_, ok = Match(records, "  ")
	assert.False(t, ok)
}
