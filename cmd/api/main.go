// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
)

func main() {
	shopServiceURL, _ := url.Parse(getEnv("SHOP_SERVICE_URL", "http://localhost:8081"))
	adminServiceURL, _ := url.Parse(getEnv("ADMIN_SERVICE_URL", "http://localhost:8082"))

	shopProxy := httputil.NewSingleHostReverseProxy(shopServiceURL)
	adminProxy := httputil.NewSingleHostReverseProxy(adminServiceURL)

	http.Handle("/api/v1/shop/", http.StripPrefix("/api/v1/shop", shopProxy))
	http.Handle("/api/v1/admin/", http.StripPrefix("/api/v1/admin", adminProxy))

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
