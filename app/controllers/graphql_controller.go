package controllers

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/app/models"
	"farmlink/app/repositories"
	"farmlink/app/services"
	"farmlink/pkg/paginate"
	gqlkit "farmlink/pkg/graphql"
)

// NewCatalogueSchema builds the read-only GraphQL schema over the public
// product catalogue, served at POST /api/graphql.
func NewCatalogueSchema(service *services.ProductService) (graphql.Schema, error) {
	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).ID.Hex(), nil
				},
			},
			"farmerId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).FarmerID.Hex(), nil
				},
			},
			"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.Field{Type: graphql.String},
			"category":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"price":       &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"unit":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"quantity":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"isOrganic":   &graphql.Field{Type: graphql.Boolean},
			"isAvailable": &graphql.Field{Type: graphql.Boolean},
			"rating":      &graphql.Field{Type: graphql.Float},
			"reviewCount": &graphql.Field{Type: graphql.Int},
			"tags":        &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := primitive.ObjectIDFromHex(p.Args["id"].(string))
					if err != nil {
						return nil, fmt.Errorf("invalid product id")
					}
					return service.Get(p.Context, id)
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"organic":  &graphql.ArgumentConfig{Type: graphql.Boolean},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultProductPageSize},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var f repositories.ProductFilter
					if v, ok := p.Args["category"].(string); ok && v != "" {
						cat := models.Category(v)
						if !cat.IsValid() {
							return nil, fmt.Errorf("unknown category %q", v)
						}
						f.Category = cat
					}
					if v, ok := p.Args["search"].(string); ok {
						f.Search = v
					}
					if v, ok := p.Args["organic"].(bool); ok {
						f.Organic = &v
					}
					f.SortDesc = true

					page, _ := p.Args["page"].(int)
					limit, _ := p.Args["limit"].(int)
					if page < 1 {
						page = 1
					}
					if limit < 1 || limit > 100 {
						limit = defaultProductPageSize
					}

					products, _, err := service.List(p.Context, f, paginate.Params{Page: page, Limit: limit})
					return products, err
				},
			},
		},
	})

	return gqlkit.NewSchema(rootQuery)
}
