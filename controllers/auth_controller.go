package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/services"
	"laundry-backend/utils"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (ctl *AuthController) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	user, err := ctl.auth.Register(in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "registered", user)
}

func (ctl *AuthController) Login(c *gin.Context) {
	var in services.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	token, user, err := ctl.auth.Login(in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "login successful", gin.H{
		"token": token,
		"user":  user,
	})
}
