package admin

import (
	"errors"
	"strings"

	"dealership-backend/internal/auth"
	"dealership-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=100"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name" validate:"omitempty,max=100"`
	Role     *models.UserRole `json:"role"`
	Active   *bool            `json:"active"`
	Password *string          `json:"password" validate:"omitempty,min=8"`
}

type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: u.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// KULLANICI YÖNETİMİ
// ----------------------------------------

func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "İsim, geçerli email, rol ve en az 8 karakter şifre zorunlu")
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol")
		}

		// Email kontrolü
		var exist models.User
		if err := db.Where("email = ?", body.Email).First(&exist).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bu email zaten kayıtlı")
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: hash,
			Role:         body.Role,
			Active:       true,
		}

		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusBadRequest, "Bu email zaten kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// GET /api/admin/users?role=salesperson
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.User{})
		if r := c.Query("role"); r != "" {
			role := models.UserRole(r)
			if !role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol")
			}
			dbq = dbq.Where("role = ?", role)
		}

		var users []models.User
		if err := dbq.Order("name asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/users/:id
// Kullanıcı silinmez, pasife alınır
func UpdateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var user models.User
		if err := db.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		updates := map[string]interface{}{}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "İsim boş olamaz")
			}
			updates["name"] = name
		}
		if body.Role != nil {
			if !body.Role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol")
			}
			updates["role"] = *body.Role
		}
		if body.Active != nil {
			if currentID, _, err := auth.CurrentUser(c); err == nil && currentID == user.ID && !*body.Active {
				return fiber.NewError(fiber.StatusBadRequest, "Kendi hesabınızı pasife alamazsınız")
			}
			updates["active"] = *body.Active
		}
		if body.Password != nil {
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
			}
			updates["password_hash"] = hash
		}

		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı güncellenemedi")
			}
		}

		if err := db.First(&user, user.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı yüklenemedi")
		}
		return c.JSON(toUserResponse(user))
	}
}
