package train

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/churnkit/schema"
)

const datasetCSV = `customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,MultipleLines,InternetService,OnlineSecurity,OnlineBackup,DeviceProtection,TechSupport,StreamingTV,StreamingMovies,Contract,PaperlessBilling,PaymentMethod,MonthlyCharges,TotalCharges,Churn
7590-VHVEG,Female,0,Yes,No,1,No,No phone service,DSL,No,Yes,No,No,No,No,Month-to-month,Yes,Electronic check,29.85,29.85,Yes
5575-GNVDE,Male,0,No,No,34,Yes,No,DSL,Yes,No,Yes,No,No,No,One year,No,Mailed check,56.95,1889.5,No
4472-LVYGI,Female,0,Yes,Yes,0,No,No phone service,DSL,Yes,No,Yes,Yes,Yes,No,Two year,Yes,Bank transfer (automatic),52.55, ,No
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(datasetCSV), schema.Customer())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if ds.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ds.Len())
	}
	if !ds.Labeled || ds.LabelColumn != "churn" {
		t.Errorf("Labeled = %v, LabelColumn = %q, want true/churn", ds.Labeled, ds.LabelColumn)
	}

	if ds.IDs[0] != "7590-vhveg" {
		t.Errorf("IDs[0] = %q, want 7590-vhveg", ds.IDs[0])
	}

	first := ds.Records[0]
	if first["gender"] != "female" {
		t.Errorf("gender = %v, want female", first["gender"])
	}
	if first["multiplelines"] != "no_phone_service" {
		t.Errorf("multiplelines = %v, want no_phone_service", first["multiplelines"])
	}
	if first["paymentmethod"] != "electronic_check" {
		t.Errorf("paymentmethod = %v, want electronic_check", first["paymentmethod"])
	}
	if first["tenure"] != 1.0 {
		t.Errorf("tenure = %v (%T), want 1.0", first["tenure"], first["tenure"])
	}

	// 括号在归一化中保留，仅空格转下划线
	if got := ds.Records[2]["paymentmethod"]; got != "bank_transfer_(automatic)" {
		t.Errorf("paymentmethod = %v, want bank_transfer_(automatic)", got)
	}

	// 新客户的 totalcharges 为空白文本，按 0 处理
	if got := ds.Records[2]["totalcharges"]; got != 0.0 {
		t.Errorf("totalcharges = %v, want 0.0", got)
	}

	wantLabels := []int{1, 0, 0}
	for i, want := range wantLabels {
		if ds.Labels[i] != want {
			t.Errorf("Labels[%d] = %d, want %d", i, ds.Labels[i], want)
		}
	}
}

func TestReadCSV_MissingColumns(t *testing.T) {
	csv := "customerID,gender,Churn\n7590-VHVEG,Female,No\n"
	_, err := ReadCSV(strings.NewReader(csv), schema.Customer())
	if err == nil {
		t.Fatal("ReadCSV() error = nil, want missing columns error")
	}
	for _, col := range []string{"tenure", "contract", "monthlycharges"} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error %q does not mention %s", err, col)
		}
	}
}

func TestReadCSV_BadNumber(t *testing.T) {
	csv := strings.Replace(datasetCSV, "29.85,29.85", "abc,29.85", 1)
	_, err := ReadCSV(strings.NewReader(csv), schema.Customer())
	if err == nil || !strings.Contains(err.Error(), "cannot parse") {
		t.Errorf("ReadCSV() error = %v, want parse error for monthlycharges", err)
	}
}

func TestReadCSV_NoLabelColumn(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(datasetCSV), "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line[:strings.LastIndex(line, ",")])
	}

	ds, err := ReadCSV(strings.NewReader(b.String()), schema.Customer())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Labeled {
		t.Error("Labeled = true, want false without churn column")
	}
	if len(ds.Labels) != 0 {
		t.Errorf("len(Labels) = %d, want 0", len(ds.Labels))
	}
}

func TestReadCSV_Options(t *testing.T) {
	csv := strings.ReplaceAll(datasetCSV, "customerID", "AccountID")
	csv = strings.ReplaceAll(csv, "Churn", "Left")

	ds, err := ReadCSV(strings.NewReader(csv), schema.Customer(),
		WithIDColumn("AccountID"),
		WithLabelColumn("Left"),
	)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.IDs[0] != "7590-vhveg" {
		t.Errorf("IDs[0] = %q, want 7590-vhveg", ds.IDs[0])
	}
	if !ds.Labeled || ds.LabelColumn != "left" {
		t.Errorf("LabelColumn = %q, want left", ds.LabelColumn)
	}
	if ds.Labels[0] != 1 {
		t.Errorf("Labels[0] = %d, want 1", ds.Labels[0])
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telco.csv")
	if err := os.WriteFile(path, []byte(datasetCSV), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	ds, err := LoadCSV(path, schema.Customer())
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ds.Len())
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"), schema.Customer()); err == nil {
		t.Error("LoadCSV() error = nil for missing file")
	}
}
