// seedadmin 在空库里种一个管理员账号：
//
//	go run ./cmd/seedadmin -email admin@campus.edu -password xxx -name "Admin" -role super_admin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"qless-server/internal/core/config"
	"qless-server/internal/core/database"
	"qless-server/internal/domain"
	"qless-server/pkg/utils"
)

func main() {
	var (
		email    = flag.String("email", "", "admin email")
		password = flag.String("password", "", "admin password")
		name     = flag.String("name", "Admin", "display name")
		roleStr  = flag.String("role", string(domain.RoleAdmin), "admin or super_admin")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: seedadmin -email ... -password ... [-name ...] [-role admin|super_admin]")
		os.Exit(2)
	}
	role, ok := domain.ParseRole(*roleStr)
	if !ok || role == domain.RoleStudent {
		fmt.Fprintln(os.Stderr, "role must be admin or super_admin")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       1,
		MaxIdleConns:       1,
		ConnMaxLifetimeMin: 1,
		LogLevel:           "silent",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	id := domain.DeriveUserID(*email)

	var existing domain.User
	if err := db.First(&existing, "id = ?", id).Error; err == nil {
		// 已存在则只提权
		if err := db.Model(&existing).Updates(map[string]any{"role": role, "active": true}).Error; err != nil {
			fmt.Fprintln(os.Stderr, "promote:", err)
			os.Exit(1)
		}
		fmt.Printf("promoted %s (%s) to %s\n", existing.Email, id, role)
		return
	}

	u := domain.User{
		ID:           id,
		Email:        *email,
		Name:         *name,
		PasswordHash: utils.HashPassword(*password),
		Role:         role,
		Active:       true,
	}
	if err := db.Create(&u).Error; err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}
	fmt.Printf("created %s (%s) with role %s\n", u.Email, id, role)
}
