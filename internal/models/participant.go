package models

import (
	"strings"
	"time"
)

// School year values shared by participants and applications, from the final year down.
const (
	SchoolYearFourth = "4"
	SchoolYearThird  = "3"
	SchoolYearSecond = "2"
	SchoolYearFirst  = "1"
	SchoolYearLower  = "l"
)

// SchoolYears lists the valid school years ordered from the highest.
var SchoolYears = []string{SchoolYearFourth, SchoolYearThird, SchoolYearSecond, SchoolYearFirst, SchoolYearLower}

// OtherSchool marks a participant whose school is not in the catalogue.
const OtherSchool = "--jiná--"

// User is the account record owned by the authentication system.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Participant holds the competition profile of a user.
type Participant struct {
	UserID          uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Phone           *string    `gorm:"size:20" json:"phone"`
	BirthDate       *time.Time `gorm:"type:date" json:"birth_date"`
	Street          string     `gorm:"size:100;not null" json:"street"`
	City            string     `gorm:"size:100;not null" json:"city"`
	ZipCode         string     `gorm:"size:10;not null" json:"zip_code"`
	Country         string     `gorm:"size:10;not null" json:"country"`
	School          string     `gorm:"size:80;not null" json:"school"`
	SchoolYear      string     `gorm:"size:1;not null" json:"school_year"`
	SchoolAltName   *string    `gorm:"size:80" json:"school_alt_name"`
	SchoolAltStreet *string    `gorm:"size:100" json:"school_alt_street"`
	SchoolAltCity   *string    `gorm:"size:100" json:"school_alt_city"`
	SchoolAltZip    *string    `gorm:"size:10" json:"school_alt_zip_code"`
	BrochuresByMail bool       `gorm:"not null;default:true" json:"brochures_by_mail"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	User            User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// FullName returns the display name, falling back to the e-mail address.
func (p Participant) FullName() string {
	if name := p.User.FullName(); name != "" {
		return name
	}
	return p.User.Email
}

// SchoolName resolves the catalogue school or the alternative name.
func (p Participant) SchoolName() string {
	if p.School != OtherSchool {
		return p.School
	}
	if p.SchoolAltName == nil {
		return ""
	}
	return *p.SchoolAltName
}

// NextSchoolYear returns the school year following the current one. The final year stays put.
func NextSchoolYear(current string) string {
	for i, year := range SchoolYears {
		if year == current {
			if i == 0 {
				return year
			}
			return SchoolYears[i-1]
		}
	}
	return current
}
