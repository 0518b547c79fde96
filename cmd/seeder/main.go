package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/parksafe/parksafe/internal/config"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/migrations"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Great Smoky Mountains, Sugarlands visitor area
const (
	centerLat = 35.6532
	centerLng = -83.5070
)

func main() {
	fresh := flag.Bool("fresh", false, "drop and recreate every table before seeding")
	flag.Parse()

	cfg := config.Load()

	if *fresh {
		if err := migrations.Rollback(cfg.DB.URL()); err != nil {
			log.Printf("⚠️  Rollback: %v", err)
		}
	}
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// Common password for all users
	password := "password123"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	log.Println("🌱 Seeding 8 visitors...")
	now := time.Now()
	profiles := make([]model.Profile, 0, 8)

	for i := 1; i <= 8; i++ {
		email := fmt.Sprintf("visitor%d@parksafe.local", i)

		var existing model.Profile
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			profiles = append(profiles, existing)
			continue
		}

		// Spread visitors on a ~1.5km ring around the centre
		angle := float64(i) * 2 * math.Pi / 8
		lat := centerLat + 0.0135*math.Sin(angle)
		lng := centerLng + 0.0165*math.Cos(angle)
		name := fmt.Sprintf("Visitor %d", i)
		avatar := fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=visitor%d", i)

		// Every third visitor has been offline for a while
		seen := now.Add(-time.Duration(i%3) * 50 * time.Minute)

		p := model.Profile{
			Email:       email,
			Password:    string(hashedPassword),
			FullName:    &name,
			AvatarURL:   &avatar,
			LocationLat: &lat,
			LocationLng: &lng,
			LocationAt:  &seen,
			LastActive:  &seen,
		}
		if err := db.Create(&p).Error; err != nil {
			log.Printf("❌ Failed to create visitor %s: %v", email, err)
			continue
		}
		profiles = append(profiles, p)
		log.Printf("✅ Created visitor: %s | Pass: %s", email, password)
	}

	if len(profiles) >= 3 {
		seedGroup(db, profiles[:3])
		seedAlerts(db, profiles)
	}

	log.Println("🎉 Seeding completed!")
}

func seedGroup(db *gorm.DB, members []model.Profile) {
	var count int64
	db.Model(&model.Group{}).Where("name = ?", "Trail Crew").Count(&count)
	if count > 0 {
		return
	}

	admin := members[0]
	group := model.Group{
		Name:      "Trail Crew",
		CreatedBy: admin.ID,
		Members:   []model.GroupMember{{UserID: admin.ID, Role: model.MemberRoleAdmin}},
	}
	for _, m := range members[1:] {
		group.Members = append(group.Members, model.GroupMember{UserID: m.ID, Role: model.MemberRoleMember})
	}
	if err := db.Create(&group).Error; err != nil {
		log.Printf("❌ Failed to create group: %v", err)
		return
	}

	db.Create(&model.Message{
		SenderID: admin.ID,
		GroupID:  &group.ID,
		Content:  "Meet at the Alum Cave trailhead at 8am 🥾",
		Type:     model.MessageTypeNormal,
	})
	db.Create(&model.Message{
		SenderID:    members[1].ID,
		RecipientID: &admin.ID,
		Content:     "Running 10 minutes late, save me a spot",
		Type:        model.MessageTypeNormal,
	})

	log.Printf("✅ Created demo group: 'Trail Crew' with %d members", len(members))
}

func seedAlerts(db *gorm.DB, profiles []model.Profile) {
	var count int64
	db.Model(&model.Alert{}).Count(&count)
	if count > 0 {
		return
	}

	alerts := []model.Alert{
		{
			UserID:   profiles[1].ID,
			Type:     model.AlertTypeBroadcast,
			Message:  "Black bear sighted near Sugarlands parking",
			Status:   model.AlertStatusActive,
			Severity: model.SeverityMedium,
			Location: &model.Location{Lat: centerLat + 0.002, Lng: centerLng - 0.001},
		},
		{
			UserID:   profiles[2].ID,
			Type:     model.AlertTypePanic,
			Message:  "Twisted ankle on the Gatlinburg trail",
			Status:   model.AlertStatusResolved,
			Severity: model.SeverityHigh,
			Location: &model.Location{Lat: centerLat - 0.004, Lng: centerLng + 0.003},
		},
	}
	for i := range alerts {
		if err := db.Create(&alerts[i]).Error; err != nil {
			log.Printf("❌ Failed to create alert: %v", err)
		}
	}
	log.Printf("✅ Created %d demo alerts", len(alerts))
}
