package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/hivegate/hivegate/pkg/hapi/services"
)

func RegisterAPI(api huma.API, svcs *services.Services) {
	RegisterHealth(api)
	if svcs != nil {
		api.UseMiddleware(svcs.IAM.Middleware())
		RegisterSubmissions(api, svcs)
	}
}
