// Package memory implementa todos los puertos de repositorio sobre mapas en memoria,
// con transacciones copy-on-begin / swap-on-commit. Lo usan los tests y el modo demo.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

type itemKey struct {
	location string
	material string
}

type state struct {
	materials   map[string]entity.Material
	locations   map[string]entity.WarehouseLocation
	items       map[itemKey]entity.WarehouseItem
	logs        []entity.InventoryLog
	stocktakes  map[string]entity.Stocktake
	assignments map[string]entity.StocktakeAssignment
	results     map[string]entity.StocktakeResult
	users       map[string]entity.User
}

func newState() *state {
	return &state{
		materials:   map[string]entity.Material{},
		locations:   map[string]entity.WarehouseLocation{},
		items:       map[itemKey]entity.WarehouseItem{},
		stocktakes:  map[string]entity.Stocktake{},
		assignments: map[string]entity.StocktakeAssignment{},
		results:     map[string]entity.StocktakeResult{},
		users:       map[string]entity.User{},
	}
}

func (s *state) clone() *state {
	c := &state{
		materials:   make(map[string]entity.Material, len(s.materials)),
		locations:   make(map[string]entity.WarehouseLocation, len(s.locations)),
		items:       make(map[itemKey]entity.WarehouseItem, len(s.items)),
		logs:        append([]entity.InventoryLog(nil), s.logs...),
		stocktakes:  make(map[string]entity.Stocktake, len(s.stocktakes)),
		assignments: make(map[string]entity.StocktakeAssignment, len(s.assignments)),
		results:     make(map[string]entity.StocktakeResult, len(s.results)),
		users:       make(map[string]entity.User, len(s.users)),
	}
	for k, v := range s.materials {
		c.materials[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.stocktakes {
		c.stocktakes[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.results {
		c.results[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store guarda el estado confirmado. Las transacciones se serializan con mu:
// una tx trabaja sobre una copia y solo la publica si fn termina sin error.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// view resuelve sobre qué estado opera un repositorio: el confirmado (tomando el lock
// en cada llamada) o la copia de una transacción en curso (lock ya tomado por Run).
type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func storesFor(v view) repository.Stores {
	return repository.Stores{
		Materials:   &materialRepo{v},
		Locations:   &locationRepo{v},
		Items:       &itemRepo{v},
		Logs:        &logRepo{v},
		Stocktakes:  &stocktakeRepo{v},
		Assignments: &assignmentRepo{v},
		Results:     &resultRepo{v},
		Users:       &userRepo{v},
	}
}

// Stores devuelve repositorios fuera de transacción (lecturas y escrituras sueltas).
func (s *Store) Stores() repository.Stores {
	return storesFor(view{store: s})
}

// Run ejecuta fn sobre una copia del estado; con error la copia se descarta.
func (s *Store) Run(ctx context.Context, fn func(repository.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.st.clone()
	if err := fn(storesFor(view{store: s, tx: tx})); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// RunIsolated igual que Run: las transacciones en memoria ya son serializables.
func (s *Store) RunIsolated(ctx context.Context, fn func(repository.Stores) error) error {
	return s.Run(ctx, fn)
}

// ──────────────────────────────────────────────────────────────────────────────
// Datos maestros y helpers de inspección (tests, seed del modo demo)
// ──────────────────────────────────────────────────────────────────────────────

// PutMaterial registra o reemplaza un material.
func (s *Store) PutMaterial(m entity.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.materials[m.ID] = m
}

// PutLocation registra o reemplaza una ubicación.
func (s *Store) PutLocation(l entity.WarehouseLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.Status == "" {
		l.Status = entity.LocationStatusActive
	}
	s.st.locations[l.ID] = l
}

// PutUser registra un usuario del directorio.
func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// PutItem fija la cantidad de un ítem sin tocar Material.stock (sirve para provocar desvíos).
func (s *Store) PutItem(locationID, materialID string, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items[itemKey{locationID, materialID}] = entity.WarehouseItem{
		LocationID: locationID, MaterialID: materialID, Quantity: qty,
	}
}

// Material devuelve una copia del material o nil.
func (s *Store) Material(id string) *entity.Material {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.st.materials[id]
	if !ok {
		return nil
	}
	return &m
}

// Item devuelve una copia del ítem o nil si no existe la fila.
func (s *Store) Item(locationID, materialID string) *entity.WarehouseItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.st.items[itemKey{locationID, materialID}]
	if !ok {
		return nil
	}
	return &it
}

// Logs devuelve una copia del kardex completo en orden de inserción.
func (s *Store) Logs() []entity.InventoryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.InventoryLog(nil), s.st.logs...)
}

// ItemsTotal suma las cantidades de un material en todas sus ubicaciones.
func (s *Store) ItemsTotal(materialID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemsTotal(s.st, materialID)
}

func itemsTotal(st *state, materialID string) decimal.Decimal {
	total := decimal.Zero
	for k, it := range st.items {
		if k.material == materialID {
			total = total.Add(it.Quantity)
		}
	}
	return total
}
