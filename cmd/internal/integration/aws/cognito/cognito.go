package cognitoclient

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type User struct {
	Name     string
	Email    string
	Password string
}

type UserLogin struct {
	Email    string
	Password string
}

type UserConfirmation struct {
	Email string
	Code  string
}

type AuthCreate struct {
	AccessToken string
	IDToken     string
}

type CognitoInterface interface {
	SignUp(user *User) (string, error)
	SignIn(credentials *UserLogin) (*AuthCreate, error)
	ConfirmAccount(confirmation *UserConfirmation) error
	AdminDeleteUser(email string) error
}

type cognitoClient struct {
	client     *cognitoidentityprovider.Client
	appClient  string
	userPoolID string
}

func InitCognitoClient() (CognitoInterface, error) {
	appClient := os.Getenv("COGNITO_CLIENT_ID")
	userPoolID := os.Getenv("COGNITO_USER_POOL_ID")
	if appClient == "" || userPoolID == "" {
		return nil, errors.New("COGNITO_CLIENT_ID and COGNITO_USER_POOL_ID must be set")
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	return &cognitoClient{
		client:     cognitoidentityprovider.NewFromConfig(cfg),
		appClient:  appClient,
		userPoolID: userPoolID,
	}, nil
}

// SignUp registers the user with the pool and returns the assigned sub.
// Cognito sends the verification code to the user's email.
func (c *cognitoClient) SignUp(user *User) (string, error) {
	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.appClient),
		Username: aws.String(user.Email),
		Password: aws.String(user.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(user.Email)},
			{Name: aws.String("name"), Value: aws.String(user.Name)},
		},
	}

	out, err := c.client.SignUp(context.Background(), input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UserSub), nil
}

func (c *cognitoClient) SignIn(credentials *UserLogin) (*AuthCreate, error) {
	input := &cognitoidentityprovider.InitiateAuthInput{
		ClientId: aws.String(c.appClient),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": credentials.Email,
			"PASSWORD": credentials.Password,
		},
	}

	out, err := c.client.InitiateAuth(context.Background(), input)
	if err != nil {
		return nil, err
	}

	if out.AuthenticationResult == nil {
		return nil, errors.New("cognito returned no authentication result")
	}

	return &AuthCreate{
		AccessToken: aws.ToString(out.AuthenticationResult.AccessToken),
		IDToken:     aws.ToString(out.AuthenticationResult.IdToken),
	}, nil
}

func (c *cognitoClient) ConfirmAccount(confirmation *UserConfirmation) error {
	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.appClient),
		Username:         aws.String(confirmation.Email),
		ConfirmationCode: aws.String(confirmation.Code),
	}

	_, err := c.client.ConfirmSignUp(context.Background(), input)
	return err
}

func (c *cognitoClient) AdminDeleteUser(email string) error {
	input := &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
	}

	_, err := c.client.AdminDeleteUser(context.Background(), input)
	return err
}
