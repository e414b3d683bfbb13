package models

var registeredModels []any

func registerModel(model any) {
	registeredModels = append(registeredModels, model)
}

// GetModels returns every registered model for automigration.
func GetModels() []any {
	return registeredModels
}
