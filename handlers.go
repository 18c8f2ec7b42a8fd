package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tanklevel/models"
	"tanklevel/pkg/camera"
	"tanklevel/pkg/level"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/measurements/run", runMeasurementHandler)
	authGroup.GET("/measurements", listMeasurementsHandler)
	authGroup.GET("/measurements/latest", latestMeasurementHandler)
	authGroup.GET("/measurements/:id/annotated", annotatedSnapshotHandler)
	authGroup.GET("/calibration", getCalibrationHandler)
	authGroup.POST("/calibration", putCalibrationHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// levelConfigFromEnv assembles the measurement tuning from the environment,
// falling back to the package defaults for anything unset.
func levelConfigFromEnv() level.Config {
	cfg := level.DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv("BRIGHT_THRESHOLD")); err == nil {
		cfg.BrightThreshold = v
	}
	if v, err := strconv.Atoi(os.Getenv("ZERO_RUN")); err == nil && v >= 1 {
		cfg.ZeroRun = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("LITERS_PER_CM"), 64); err == nil && v > 0 {
		cfg.LitersPerCm = v
	}
	if v, err := strconv.Atoi(os.Getenv("STRIP_OFFSET")); err == nil && v >= 0 {
		cfg.StripOffset = v
	}
	if v, err := strconv.Atoi(os.Getenv("STRIP_WIDTH")); err == nil && v > 0 {
		cfg.StripWidth = v
	}
	return cfg
}

// calibrationFromDB loads the site calibration table from the calibration_points rows.
func calibrationFromDB() (*level.Calibration, error) {
	var rows []models.CalibrationPoint
	if err := db.Order("height_cm asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	points := make([]level.CalibrationPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, level.CalibrationPoint{HeightCm: r.HeightCm, PixelOffset: r.PixelOffset})
	}
	return level.NewCalibration(points)
}

// runMeasurementHandler takes one measurement now. The snapshot comes either
// from a multipart "snapshot" file in the request or, when absent, from a
// fresh fetch off the camera (CAMERA_URL). Failed runs are recorded with the
// reason so bad captures stay reviewable.
func runMeasurementHandler(c *gin.Context) {
	if _, ok := getUserFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	cal, err := calibrationFromDB()
	if err != nil {
		if errors.Is(err, level.ErrCalibrationTooSmall) {
			c.JSON(http.StatusConflict, gin.H{"error": "calibration not configured (need at least two points)"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load calibration"})
		return
	}

	var snapshotPath string
	if file, err := c.FormFile("snapshot"); err == nil {
		if file.Size > 10*1024*1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot too large (max 10MB)"})
			return
		}
		snapshotPath = filepath.Join(snapshotBaseDir(), "upload-"+time.Now().UTC().Format("20060102-150405")+filepath.Ext(file.Filename))
		if err := c.SaveUploadedFile(file, snapshotPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store snapshot"})
			return
		}
	} else {
		camURL := os.Getenv("CAMERA_URL")
		if camURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no snapshot uploaded and CAMERA_URL not configured"})
			return
		}
		snapshotPath, err = camera.New(camURL).Fetch(c.Request.Context(), snapshotBaseDir())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "camera fetch failed: " + err.Error()})
			return
		}
	}

	cfg := levelConfigFromEnv()
	measuredAt := time.Now()
	doc, err := level.MeasureImage(snapshotPath, cal, cfg, measuredAt)
	if err != nil {
		m := models.Measurement{MeasuredAt: measuredAt, SnapshotPath: snapshotPath, Failed: true, FailedReason: err.Error()}
		if dbErr := db.Create(&m).Error; dbErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record measurement"})
			return
		}
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, level.ErrNoTransition) && !errors.Is(err, level.ErrOutOfCalibration) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error(), "id": m.ID})
		return
	}

	m := models.Measurement{
		MeasuredAt:   measuredAt,
		LevelCm:      doc.LevelCm,
		LevelLiter:   doc.LevelLiter,
		LevelPixel:   doc.LevelPixel,
		SnapshotPath: snapshotPath,
	}
	if err := db.Create(&m).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record measurement"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": m.ID, "measurement": doc})
}

// listMeasurementsHandler lists recent measurements, newest first.
func listMeasurementsHandler(c *gin.Context) {
	limit := 200
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	q := db.Model(&models.Measurement{})
	if c.Query("include_failed") != "1" {
		q = q.Where("failed = ?", false)
	}
	var items []models.Measurement
	if err := q.Order("measured_at desc").Limit(limit).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func latestMeasurementHandler(c *gin.Context) {
	var m models.Measurement
	if err := db.Where("failed = ?", false).Order("measured_at desc").First(&m).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no measurements recorded"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// annotatedSnapshotHandler renders the stored snapshot with the detected
// level line drawn across the strip.
func annotatedSnapshotHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var m models.Measurement
	if err := db.First(&m, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "measurement not found"})
		return
	}
	if m.Failed {
		c.JSON(http.StatusConflict, gin.H{"error": "measurement failed; no detected level to draw"})
		return
	}
	if m.SnapshotPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not stored for this measurement"})
		return
	}
	out := filepath.Join(os.TempDir(), "annotated-"+strconv.Itoa(id)+".png")
	if err := level.AnnotateFile(m.SnapshotPath, out, m.LevelPixel, levelConfigFromEnv()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "annotation failed: " + err.Error()})
		return
	}
	defer os.Remove(out)
	c.File(out)
}

func getCalibrationHandler(c *gin.Context) {
	var rows []models.CalibrationPoint
	if err := db.Order("height_cm asc").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// putCalibrationHandler replaces or extends the calibration table. Admin only:
// a bad table silently produces wrong levels, so observers cannot touch it.
func putCalibrationHandler(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "administrator" {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
		return
	}
	var req []struct {
		HeightCm    float64 `json:"height_cm"`
		PixelOffset float64 `json:"pixel_offset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no calibration points supplied"})
		return
	}
	for _, p := range req {
		var existing models.CalibrationPoint
		if err := db.Where("height_cm = ?", p.HeightCm).First(&existing).Error; err == nil {
			existing.PixelOffset = p.PixelOffset
			if err := db.Save(&existing).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
				return
			}
			continue
		}
		row := models.CalibrationPoint{HeightCm: p.HeightCm, PixelOffset: p.PixelOffset}
		if err := db.Create(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "calibration updated"})
}
