package ingestion

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadRosterFromCSVWithBOMAndSemicolons(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte(
		"Фамилия;Имя;Отчество;Должность;Старший;Примечание\n"+
			"Иванов;Иван;Иванович;водитель;да;\n"+
			";;;;;\n"+
			"Петров;Пётр;;механик;;смена 2\n",
	)...)

	roster, err := ReadRoster("roster.csv", payload, nil)
	require.NoError(t, err)
	require.Len(t, roster.Rows, 2)
	assert.Equal(t, []string{"Примечание"}, roster.Ignored)

	first := roster.Rows[0]
	assert.Equal(t, 2, first.Number)
	assert.True(t, first.Valid())
	assert.Equal(t, "Иванов", first.Input.LastName)
	require.NotNil(t, first.Input.IsSenior)
	assert.True(t, *first.Input.IsSenior)

	second := roster.Rows[1]
	assert.Equal(t, 4, second.Number)
	assert.Nil(t, second.Input.IsSenior)
	assert.Equal(t, "механик", second.Input.Position)
	assert.Zero(t, roster.InvalidRows())
	assert.Len(t, roster.Inputs(), 2)
}

func TestReadRosterDecodesWindows1251(t *testing.T) {
	// "Иванов;Иван;водитель" in Windows-1251 under English headers
	payload := []byte("last_name;first_name;position\n" +
		"\xc8\xe2\xe0\xed\xee\xe2;\xc8\xe2\xe0\xed;\xe2\xee\xe4\xe8\xf2\xe5\xeb\xfc\n")

	roster, err := ReadRoster("roster.csv", payload, nil)
	require.NoError(t, err)
	require.Len(t, roster.Rows, 1)
	row := roster.Rows[0]
	assert.True(t, row.Valid(), row.Errors)
	assert.Equal(t, "Иванов", row.Input.LastName)
	assert.Equal(t, "Иван", row.Input.FirstName)
	assert.Equal(t, "водитель", row.Input.Position)
}

func TestReadRosterReportsRowErrors(t *testing.T) {
	payload := []byte("last_name,first_name,position,senior\nИванов,,водитель,maybe\n")

	roster, err := ReadRoster("roster.csv", payload, nil)
	require.NoError(t, err)
	require.Len(t, roster.Rows, 1)
	row := roster.Rows[0]
	assert.False(t, row.Valid())
	assert.Contains(t, row.Errors, "first_name")
	assert.Contains(t, row.Errors, "is_senior")
	assert.Equal(t, 1, roster.InvalidRows())
}

func TestReadRosterRequiresColumns(t *testing.T) {
	_, err := ReadRoster("roster.csv", []byte("Фамилия,Должность\nИванов,водитель\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "имя")

	_, err = ReadRoster("roster.csv", []byte("Фамилия,Имя,Фамилия,Должность\n"), nil)
	assert.Error(t, err)
}

func TestReadRosterFromXLSXWithExplicitHeaderRow(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Список на заезд"},
		{},
		{"Фамилия", "Имя", "Отчество", "Должность"},
		{"Сидоров", "Пётр", "Ильич", "комендант"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	header := 3
	roster, err := ReadRoster("roster.xlsx", buf.Bytes(), &header)
	require.NoError(t, err)
	require.Len(t, roster.Rows, 1)
	assert.Equal(t, 4, roster.Rows[0].Number)
	assert.Equal(t, "Ильич", roster.Rows[0].Input.Patronymic)

	_, err = ReadRoster("roster.xlsx", buf.Bytes(), nil)
	assert.Error(t, err, "title row is not a header")
}

func TestParseTableRejectsUnknownFormats(t *testing.T) {
	_, err := ParseTable("roster.ods", []byte("x"), nil)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	bad := 9
	_, err = ParseTable("roster.csv", []byte("a,b\n1,2\n"), &bad)
	assert.Error(t, err)
}
