package config

import (
	"log"
	"time"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/pkg/labnumber"
	"diglab-api/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders. Each seeder is skip-if-present so restarts
// never duplicate data.
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedPersons(); err != nil {
		log.Printf("⚠️ Person seeder skipped: %v", err)
	}
	if err := s.seedOrders(); err != nil {
		log.Printf("⚠️ Order seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the default admin account.
// Development convenience only; rotate the password in production.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash("admin123")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     "admin",
		FirstName:    "System",
		LastName:     "Administrator",
		WorkerID:     "admin",
		Profession:   models.ProfessionOther,
		PasswordHash: hashedPassword,
		Role:         "admin",
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

type seedPerson struct {
	pnr        string
	first      string
	last       string
	address    string
	postalCode string
	city       string
}

var samplePersons = []seedPerson{
	{"01010112345", "Ola", "Nordmann", "Storgata 1", "0155", "Oslo"},
	{"02020254321", "Kari", "Nordmann", "Storgata 1", "0155", "Oslo"},
	{"03030311223", "Per", "Hansen", "Kirkeveien 12", "0368", "Oslo"},
	{"04040422334", "Anne", "Olsen", "Bryggen 4", "5003", "Bergen"},
	{"05050533445", "Lars", "Johansen", "Munkegata 22", "7011", "Trondheim"},
	{"06060644556", "Ingrid", "Larsen", "Strandgata 9", "9008", "Tromsø"},
	{"07070755667", "Erik", "Andersen", "Torggata 15", "0183", "Oslo"},
	{"08080866778", "Silje", "Pedersen", "Havnegata 3", "4006", "Stavanger"},
	{"09090977889", "Bjørn", "Nilsen", "Elvegata 7", "2000", "Lillestrøm"},
	{"10101088990", "Mette", "Kristiansen", "Fjellveien 18", "5019", "Bergen"},
}

// seedPersons fills the registry with sample persons.
func (s *Seeder) seedPersons() error {
	var count int64
	s.db.Model(&models.Person{}).Count(&count)
	if count > 0 {
		return nil
	}

	for _, sp := range samplePersons {
		addr, postal, city := sp.address, sp.postalCode, sp.city
		person := &models.Person{
			Personnummer: sp.pnr,
			FirstName:    sp.first,
			LastName:     sp.last,
			AddressLine1: &addr,
			PostalCode:   &postal,
			City:         &city,
		}
		if err := s.db.Create(person).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d persons", len(samplePersons))
	return nil
}

// seedOrders creates one sample order per seeded person.
func (s *Seeder) seedOrders() error {
	var count int64
	s.db.Model(&models.Order{}).Count(&count)
	if count > 0 {
		return nil
	}

	diagnoses := [][]string{
		{"Chlamydia trachomatis", "Neisseria gonorrhoeae"},
		{"Mycoplasma genitalium"},
		{"Chlamydia trachomatis"},
		{"Trichomonas vaginalis", "Mycoplasma genitalium"},
		{"Neisseria gonorrhoeae"},
	}

	var persons []models.Person
	if err := s.db.Order("personnummer").Find(&persons).Error; err != nil {
		return err
	}

	day := time.Now().AddDate(0, 0, -len(persons))
	for i, p := range persons {
		pnr := p.Personnummer
		orderDay := day.AddDate(0, 0, i)
		order := &models.Order{
			LabNumber:    labnumber.New(orderDay),
			Name:         p.FullName(),
			Personnummer: &pnr,
			Date:         orderDay.Format("2006-01-02"),
			Time:         "09:30",
			Diagnoses:    diagnoses[i%len(diagnoses)],
		}
		if err := s.db.Create(order).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d orders", len(persons))
	return nil
}
