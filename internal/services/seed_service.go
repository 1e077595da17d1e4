package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/alvarovalenzuelac/presuapp/internal/models"
)

// seedEntry is one global root category with its subcategories.
type seedEntry struct {
	name     string
	children []string
}

// Global category tree offered to every user. Each root is guaranteed a
// "General" or "Otros" child so the chat flow's generic option always
// resolves.
var seedData = []seedEntry{
	{"Comida y bebida", []string{"Bar, Café", "Restaurant, Delivery", "Supermercado"}},
	{"Compras", []string{"Regalos", "Mascotas", "Ropa y calzado", "Tiempo Libre"}},
	{"Vivienda", []string{"Servicios", "Arriendo, Dividendo", "Electricidad, Gas", "Mantenimiento, reparaciones"}},
	{"Transporte", []string{"Transporte publico", "Taxi, Transporte app"}},
	{"Vehiculos", []string{"Estacionamiento", "Combustible", "Seguro"}},
	{"Vida y entretenimiento", []string{"Alcohol, tabaco", "Medico", "Gimnasio", "Educacion", "Libros", "Streaming, Musica y TV"}},
	{"PC, Comunicaciones", []string{"Internet", "Juegos", "Telefono"}},
	{"Inversiones", []string{"Ahorros", "Inversiones financieras"}},
	{"Otros", []string{"Otros"}},
}

// SeedGlobalCategories loads the global category tree and reports how many
// roots and subcategories were created. Re-running it creates nothing new.
func SeedGlobalCategories(db *gorm.DB) (parents, children int, err error) {
	for _, entry := range seedData {
		parent, created, err := getOrCreateGlobalCategory(db, entry.name, nil)
		if err != nil {
			return parents, children, err
		}
		if created {
			parents++
		}

		names := entry.children
		if !containsDefaultName(names) {
			names = append(names, "General")
		}

		for _, childName := range names {
			_, created, err := getOrCreateGlobalCategory(db, childName, &parent.ID)
			if err != nil {
				return parents, children, err
			}
			if created {
				children++
			}
		}
	}
	return parents, children, nil
}

// getOrCreateGlobalCategory finds a global category by name and parent,
// creating it when missing.
func getOrCreateGlobalCategory(db *gorm.DB, name string, parentID *string) (*models.Category, bool, error) {
	query := db.Where("name = ? AND user_id IS NULL", name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var category models.Category
	err := query.First(&category).Error
	if err == nil {
		return &category, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	category = models.Category{Name: name, ParentID: parentID}
	if err := db.Create(&category).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return &category, true, nil
}

func containsDefaultName(names []string) bool {
	for _, n := range names {
		if n == "General" || n == "Otros" {
			return true
		}
	}
	return false
}
