package config

import (
	"fmt"
	"log"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Db *gorm.DB
var err error

func ConnectDatabase() {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		AppCfg.DB_USER, AppCfg.DB_PASSWORD, AppCfg.DB_HOST, AppCfg.DB_PORT, AppCfg.DB_NAME)
	Db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	if err := Db.AutoMigrate(&model.Project{}, &model.Feedback{}, &model.Operator{}); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
}
