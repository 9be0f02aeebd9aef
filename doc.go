// Package wrap provides request and response decorators for endpoints
// served through net/http and gorilla/mux.
//
// An endpoint is a plain function of the request:
//
//	type Handler func(r *http.Request) (any, error)
//
// Extractors hand one view of the request to the endpoint as its first
// argument: JSON (the body as map[string]any), Query, Headers, Cookies and
// Body (raw bytes). Required adds presence and type checks on top of JSON:
//
//	createUser := wrap.Required("str:name", "int:age")(
//	    func(body map[string]any, r *http.Request) (any, error) {
//	        return wrap.Status(body, http.StatusCreated), nil
//	    })
//
// JSONResponse turns the endpoint's result, a bare payload or a Reply of
// (payload, status), into an application/json response. Catch converts
// errors and panics into Reply{trace, 500} and belongs outermost:
//
//	h := wrap.Chain(createUser, wrap.Catch, wrap.JSONResponse)
//
// A RouteFactory registers handlers per HTTP method on a Router, giving
// each route a unique name:
//
//	r := wrap.New()
//	routes := wrap.NewRouteFactory(r)
//	routes.Post("/users")(h)
//	r.ListenAndServe(ctx, ":8080")
package wrap
