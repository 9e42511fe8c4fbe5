package service

import (
	"errors"
	"fmt"

	"github.com/recipebox/recipebox/database"
	"github.com/recipebox/recipebox/database/model"

	"gorm.io/gorm"
)

// RecipeService gives access to recipes. Every query is scoped to the
// owning user.
type RecipeService struct {
	DB *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{DB: db}
}

func (s *RecipeService) List(ownerId int) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := s.DB.Model(model.Recipe{}).
		Where("user_id = ?", ownerId).
		Order("id ASC").
		Find(&recipes).
		Error
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

func (s *RecipeService) Create(ownerId int, form RecipeForm) (*model.Recipe, error) {
	if err := form.normalize(); err != nil {
		return nil, err
	}
	recipe := &model.Recipe{
		RecipeName:  form.RecipeName,
		Ingredients: form.Ingredients,
		UserId:      ownerId,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(model.User{}).Where("id = ?", ownerId).Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return ErrOwnerNotFound
		}
		return tx.Create(recipe).Error
	})
	switch {
	case errors.Is(err, ErrOwnerNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
		return nil, ErrOwnerNotFound
	case err != nil:
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	return recipe, nil
}

// Get returns the recipe only when ownerId owns it.
func (s *RecipeService) Get(id, ownerId int) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	err := s.DB.Model(model.Recipe{}).
		Where("id = ? AND user_id = ?", id, ownerId).
		First(recipe).
		Error
	if database.IsNotFound(err) {
		return nil, ErrRecipeNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return recipe, nil
}

func (s *RecipeService) Update(id, ownerId int, form RecipeForm) error {
	if err := form.normalize(); err != nil {
		return err
	}
	result := s.DB.Model(model.Recipe{}).
		Where("id = ? AND user_id = ?", id, ownerId).
		Updates(map[string]any{
			"recipe_name": form.RecipeName,
			"ingredients": form.Ingredients,
		})
	if result.Error != nil {
		return fmt.Errorf("update recipe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

func (s *RecipeService) Delete(id, ownerId int) error {
	result := s.DB.Where("id = ? AND user_id = ?", id, ownerId).Delete(&model.Recipe{})
	if result.Error != nil {
		return fmt.Errorf("delete recipe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecipeNotFound
	}
	return nil
}
