package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thekirgo/calcwatch/internal/domain"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

func TestNormalize_ExpressionsEnvelope(t *testing.T) {
	payload := `{"expressions":[{"expression":"2+2","status":"completed","result":4,"created_at":"t1"}]}`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "2+2", records[0].Text)
	assert.Equal(t, "COMPLETED", records[0].Status)
	assert.Equal(t, float64(4), records[0].Result)
	assert.Equal(t, "t1", records[0].CreatedAt)
}

func TestNormalize_BareArray(t *testing.T) {
	payload := `[{"text":"1+1","status":"PROCESSING","created_at":"t2"}]`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1+1", records[0].Text)
	assert.Equal(t, domain.StatusProcessing, records[0].Status)

	snapshot := Partition(records)
	assert.Len(t, snapshot.Processing, 1)
	assert.Empty(t, snapshot.Settled)
}

func TestNormalize_NestedItems(t *testing.T) {
	payload := `{"expressions":{"items":[{"text":"3*3","status":"ERROR","created_at":"t3"}]}}`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "3*3", records[0].Text)
	assert.Equal(t, domain.StatusError, records[0].Status)
}

func TestNormalize_DoublyNestedExpressions(t *testing.T) {
	payload := `{"expressions":{"expressions":[{"text":"7-2","status":"pending","created_at":"t4"}]}}`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusPending, records[0].Status)
}

func TestNormalize_ObjectValuesInDocumentOrder(t *testing.T) {
	payload := `{"expressions":{
		"a":{"text":"1+1","status":"COMPLETED","created_at":"t1"},
		"b":{"text":"2+2","status":"COMPLETED","created_at":"t2"},
		"c":{"text":"3+3","status":"COMPLETED","created_at":"t3"}
	}}`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 3)
	// document order reversed into newest-first
	assert.Equal(t, "3+3", records[0].Text)
	assert.Equal(t, "2+2", records[1].Text)
	assert.Equal(t, "1+1", records[2].Text)
}

func TestNormalize_NewestFirst(t *testing.T) {
	payload := `{"expressions":[
		{"text":"old","status":"COMPLETED","created_at":"t1"},
		{"text":"new","status":"COMPLETED","created_at":"t2"}
	]}`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].Text)
	assert.Equal(t, "old", records[1].Text)
}

func TestNormalize_RepairsTextFromExpression(t *testing.T) {
	payload := `[{"expression":"9/3","status":"COMPLETED","result":3,"created_at":"t1"}]`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "9/3", records[0].Text)
}

func TestNormalize_DropsRecordsWithoutText(t *testing.T) {
	payload := `[
		{"status":"COMPLETED","result":1,"created_at":"t1"},
		{"text":"2+2","status":"COMPLETED","result":4,"created_at":"t2"},
		"not even an object",
		{"text":"","expression":"","status":"COMPLETED","created_at":"t3"}
	]`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2+2", records[0].Text)
}

func TestNormalize_StringResultSurvives(t *testing.T) {
	payload := `[{"text":"1/0","status":"ERROR","result":"division by zero","created_at":"t1"}]`

	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "division by zero", records[0].Result)
}

func TestNormalize_NullExpressionsIsEmptyHistory(t *testing.T) {
	records, err := Normalize([]byte(`{"expressions":null}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalize_UnrecognizableShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `<html>gateway timeout</html>`},
		{"scalar", `42`},
		{"object without expressions", `{"jobs":[]}`},
		{"null", `null`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize([]byte(tc.payload))
			require.Error(t, err)
			assert.Equal(t, apperrors.KindMalformedResponse, apperrors.KindOf(err))
		})
	}
}

func TestPartition_SplitsByProcessingStatus(t *testing.T) {
	records := []domain.JobRecord{
		{Text: "a", Status: domain.StatusProcessing},
		{Text: "b", Status: domain.StatusPending},
		{Text: "c", Status: domain.StatusCompleted},
		{Text: "d", Status: domain.StatusError},
	}

	snapshot := Partition(records)
	require.Len(t, snapshot.Processing, 1)
	assert.Equal(t, "a", snapshot.Processing[0].Text)
	require.Len(t, snapshot.Settled, 3)
}
