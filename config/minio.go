package config

type MinioConfig struct {
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	Endpoint   string `yaml:"endpoint"`
	UseSSL     bool   `yaml:"useSSL"`
	Region     string `yaml:"region"`
	BucketName string `yaml:"bucketName"`
}

func (c *MinioConfig) applyEnv(r *envReader) {
	r.string("MINIO_ACCESS_KEY", &c.AccessKey)
	r.string("MINIO_SECRET_KEY", &c.SecretKey)
	r.string("MINIO_ENDPOINT", &c.Endpoint)
	r.bool("MINIO_USE_SSL", &c.UseSSL)
	r.string("MINIO_REGION", &c.Region)
	r.string("MINIO_BUCKET_NAME", &c.BucketName)
}

// RedisConfig 结果归档使用的 Redis
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c *RedisConfig) applyEnv(r *envReader) {
	r.string("REDIS_ADDR", &c.Addr)
	r.string("REDIS_PASSWORD", &c.Password)
	r.int("REDIS_DB", &c.DB)
}
