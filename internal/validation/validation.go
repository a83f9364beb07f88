// Package validation registers the custom binding tags used by request
// structs: ymd (YYYY-MM-DD date) and hhmm (24h clock).
package validation

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var once sync.Once

func IsYMD(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func IsHHMM(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}

func ymd(fl validator.FieldLevel) bool {
	return IsYMD(fl.Field().String())
}

func hhmm(fl validator.FieldLevel) bool {
	return IsHHMM(fl.Field().String())
}

// Register installs the tags on gin's validator. Safe to call repeatedly.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ymd", ymd)
		_ = v.RegisterValidation("hhmm", hhmm)
	})
}
