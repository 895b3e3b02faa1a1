package repository

// Stores agrupa los repositorios ligados a una misma conexión o transacción.
// Es el registro tipado de acceso a datos maestros que reciben los casos de uso.
type Stores struct {
	Materials   MaterialRepository
	Locations   LocationRepository
	Items       WarehouseItemRepository
	Logs        InventoryLogRepository
	Stocktakes  StocktakeRepository
	Assignments AssignmentRepository
	Results     ResultRepository
	Users       UserRepository
}
