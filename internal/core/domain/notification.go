package domain

// MedicineNotification pairs a stocked medicine with the pharmacy holding it.
// It is computed on demand and never stored.
type MedicineNotification struct {
	MedicineStock MedicineStock `json:"medicine_stock"`
	Pharmacy      *Pharmacy     `json:"pharmacy"`
}
