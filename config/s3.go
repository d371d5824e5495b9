package config

// S3Config 结果归档使用的 S3 存储桶
type S3Config struct {
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
}

func (c *S3Config) applyEnv(r *envReader) {
	r.string("AWS_S3_BUCKET_NAME", &c.BucketName)
	r.string("AWS_REGION", &c.Region)
	r.string("AWS_ENDPOINT", &c.Endpoint)
	r.string("AWS_ACCESS_KEY", &c.AccessKey)
	r.string("AWS_SECRET_KEY", &c.SecretKey)
}
