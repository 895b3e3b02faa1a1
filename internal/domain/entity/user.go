package entity

// User es la vista de solo lectura del directorio de usuarios que usa el motor.
type User struct {
	ID   string
	Name string
}
