package dto

// ResolveAddressRequest looks location ids up by name
type ResolveAddressRequest struct {
	Province string `form:"province" binding:"required,notblank" example:"San José"`
	Canton   string `form:"canton" example:"Escazú"`
	District string `form:"district" example:"San Rafael"`
}
