package crm

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadmagnet/leadmagnet-cli/internal/model"
	"github.com/leadmagnet/leadmagnet-cli/pkg/salesforce"
)

// mockSFClient implements salesforce.Client for testing.
type mockSFClient struct {
	sObjectName string
	records     []map[string]any
	results     []salesforce.CollectionResult
	err         error
}

func (m *mockSFClient) InsertCollection(_ context.Context, sObjectName string, records []map[string]any) ([]salesforce.CollectionResult, error) {
	m.sObjectName = sObjectName
	m.records = records
	return m.results, m.err
}

func TestBuildLeadRecords(t *testing.T) {
	records := BuildLeadRecords([]model.Lead{{
		Name:    "Acme Dental Clinic",
		Phone:   "+91 98765 43210",
		Email:   "hi@acme.example",
		Website: "https://acme.example",
		Street:  "12 MG Road",
		City:    "Mumbai",
		State:   "Maharashtra",
		Country: "India",
		ZipCode: "400050",
		Status:  model.StatusHot,
	}})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Acme", rec["FirstName"])
	assert.Equal(t, "Dental Clinic", rec["LastName"])
	assert.Equal(t, "Acme Dental Clinic", rec["Company"])
	assert.Equal(t, "LeadMagnet", rec["LeadSource"])
	assert.Equal(t, "Hot", rec["Rating"])
	assert.Equal(t, "+91 98765 43210", rec["Phone"])
	assert.Equal(t, "hi@acme.example", rec["Email"])
	assert.Equal(t, "12 MG Road", rec["Street"])
	assert.Equal(t, "400050", rec["PostalCode"])
}

func TestBuildLeadRecords_SkipsMissingValues(t *testing.T) {
	records := BuildLeadRecords([]model.Lead{{
		Name:   "Acme",
		Email:  "n/a",
		Status: model.StatusNew,
	}})

	require.Len(t, records, 1)
	rec := records[0]
	assert.NotContains(t, rec, "Email")
	assert.NotContains(t, rec, "Phone")
	assert.NotContains(t, rec, "Street")
	assert.Equal(t, "New", rec["Rating"])
}

func TestBuildLeadRecords_StreetFallsBackToAddress(t *testing.T) {
	records := BuildLeadRecords([]model.Lead{{Name: "Acme", Address: "somewhere in Pune"}})
	assert.Equal(t, "somewhere in Pune", records[0]["Street"])
}

func TestPush_Empty(t *testing.T) {
	sf := &mockSFClient{}
	_, err := Push(context.Background(), sf, nil)
	assert.Error(t, err)
	assert.Empty(t, sf.records)
}

func TestPush_TalliesResults(t *testing.T) {
	sf := &mockSFClient{
		results: []salesforce.CollectionResult{
			{ID: "00Q1", Success: true},
			{Success: false, Errors: []string{"REQUIRED_FIELD_MISSING: LastName"}},
			{ID: "00Q2", Success: true},
		},
	}

	result, err := Push(context.Background(), sf, []model.Lead{
		{Name: "Acme Dental"}, {Name: "Beta Gym"}, {Name: "Gamma Cafe"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Lead", sf.sObjectName)
	assert.Len(t, sf.records, 3)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"REQUIRED_FIELD_MISSING: LastName"}, result.Errors)
}

func TestPush_InsertError(t *testing.T) {
	sf := &mockSFClient{err: eris.New("session expired")}

	_, err := Push(context.Background(), sf, []model.Lead{{Name: "Acme"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert leads")
}
